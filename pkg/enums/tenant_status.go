package enums

import "fmt"

// TenantStatus tracks the onboarding lifecycle of a marketplace seller.
type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusApproved  TenantStatus = "approved"
	TenantStatusRejected  TenantStatus = "rejected"
	TenantStatusSuspended TenantStatus = "suspended"
)

var validTenantStatuses = []TenantStatus{
	TenantStatusPending,
	TenantStatusApproved,
	TenantStatusRejected,
	TenantStatusSuspended,
}

func (s TenantStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TenantStatus.
func (s TenantStatus) IsValid() bool {
	for _, candidate := range validTenantStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTenantStatus converts raw input into a TenantStatus.
func ParseTenantStatus(value string) (TenantStatus, error) {
	for _, candidate := range validTenantStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tenant status %q", value)
}
