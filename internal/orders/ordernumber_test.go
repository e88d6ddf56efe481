package orders

import (
	"regexp"
	"testing"
	"time"
)

func TestNewOrderNumberFormat(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^PK250901\d{4}$`)

	for i := 0; i < 50; i++ {
		got := NewOrderNumber(now)
		if !pattern.MatchString(got) {
			t.Fatalf("unexpected order number %q", got)
		}
	}
}
