package orders

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const orderNumberPrefix = "PK"

// NewOrderNumber builds a human-readable order reference: PK + YYMMDD + a
// 4-digit random suffix. Collisions are possible within a day, so callers
// retry on unique violation.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s%s%04d", orderNumberPrefix, now.Format("060102"), rand.IntN(10000))
}
