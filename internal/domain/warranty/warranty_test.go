package warranty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiresAt(t *testing.T) {
	w := Warranty{
		PurchaseDate: time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC),
		PeriodMonths: 12,
	}
	assert.Equal(t, time.Date(2027, time.January, 15, 10, 0, 0, 0, time.UTC), w.ExpiresAt())
}

func TestExpiresAt_MonthEndNormalization(t *testing.T) {
	// AddDate normalizes Jan 31 + 1 month to Mar 3 (non-leap year).
	w := Warranty{
		PurchaseDate: time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		PeriodMonths: 1,
	}
	assert.Equal(t, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), w.ExpiresAt())
}

func TestExpired(t *testing.T) {
	w := Warranty{
		PurchaseDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodMonths: 6,
	}

	assert.False(t, w.Expired(time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)))
	// The expiry instant itself still counts as covered.
	assert.False(t, w.Expired(w.ExpiresAt()))
	assert.True(t, w.Expired(time.Date(2026, time.July, 1, 0, 0, 0, 1, time.UTC)))
}
