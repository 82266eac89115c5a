package config

import (
	"os"
	"strconv"
	"strings"
)

// Shop-level policy knobs. Read from env once so tests can override with Setenv
// before first use.

const (
	defaultLoyaltyPointsPerSale = 10
)

// LoyaltyPointsPerSale is the fixed number of points awarded per registered-customer
// sale (deducted again on cancellation, negative for negative-amount adjustments).
func LoyaltyPointsPerSale() int64 {
	v := strings.TrimSpace(os.Getenv("LOYALTY_POINTS_PER_SALE"))
	if v == "" {
		return defaultLoyaltyPointsPerSale
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultLoyaltyPointsPerSale
	}
	return n
}
