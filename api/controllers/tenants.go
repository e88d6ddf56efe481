package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peakkart/peakkart-backend/api/responses"
	"github.com/peakkart/peakkart-backend/api/validators"
	"github.com/peakkart/peakkart-backend/internal/tenants"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/logger"
)

type tenantApplyRequest struct {
	BusinessName  string  `json:"business_name" validate:"required,min=2,max=160"`
	BusinessEmail string  `json:"business_email" validate:"required,email"`
	BusinessPhone *string `json:"business_phone,omitempty" validate:"omitempty,min=7,max=20"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type tenantApproveRequest struct {
	CommissionRate decimal.Decimal `json:"commission_rate" validate:"required"`
}

type tenantReasonRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// TenantApply files a pending tenant application for the caller.
func TenantApply(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req tenantApplyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenant, err := svc.Apply(r.Context(), tenants.ApplyInput{
			UserID:        userID,
			BusinessName:  req.BusinessName,
			BusinessEmail: req.BusinessEmail,
			BusinessPhone: req.BusinessPhone,
			Description:   req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tenant)
	}
}

// TenantApprove activates an application and sets its commission rate.
func TenantApprove(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := parseTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req tenantApproveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenant, err := svc.Approve(r.Context(), tenantID, req.CommissionRate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tenant)
	}
}

func TenantReject(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return tenantTransition(svc.Reject, logg)
}

func TenantSuspend(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return tenantTransition(svc.Suspend, logg)
}

func TenantReactivate(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := parseTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Reactivate(r.Context(), tenantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "approved"})
	}
}

func tenantTransition(apply func(ctx context.Context, tenantID uuid.UUID, reason string) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := parseTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req tenantReasonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := apply(r.Context(), tenantID, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// TenantList pages tenants for admins, optionally filtered by status.
func TenantList(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *string
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status = &raw
		}
		list, err := svc.List(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// TenantGet returns one tenant.
func TenantGet(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := parseTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenant, err := svc.Get(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tenant)
	}
}

func parseTenantID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "tenantId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tenant id")
	}
	return id, nil
}
