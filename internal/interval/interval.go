// Package interval parses the human-readable interval strings used by
// job definitions ("one minute", "30 seconds", "2.5 minutes") into a
// millisecond count. It is a hand-rolled grammar, not a wrapper around
// an ecosystem duration parser: the accepted vocabulary (pluralized
// unit words, "a"/"an"/"one" in place of "1") is not what time.ParseDuration
// or a cron expression library accept.
package interval

import (
	"fmt"
	"strconv"
	"strings"

	"momo/internal/model"
)

var unitMultipliers = map[string]float64{
	"millisecond": 1,
	"second":      1000,
	"minute":      60 * 1000,
	"hour":        60 * 60 * 1000,
	"day":         24 * 60 * 60 * 1000,
	"week":        7 * 24 * 60 * 60 * 1000,
	"month":       30 * 24 * 60 * 60 * 1000,
	"year":        365 * 24 * 60 * 60 * 1000,
}

// Parse converts a human interval string into a strictly positive
// millisecond count. Anything that does not match "<number> <unit>",
// with optional pluralization and "a"/"an" standing in for 1, yields
// model.ErrNonParsableInterval.
func Parse(raw string) (int64, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %q", model.ErrNonParsableInterval, raw)
	}

	quantity, err := parseQuantity(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrNonParsableInterval, raw)
	}

	multiplier, ok := unitMultipliers[singularize(fields[1])]
	if !ok {
		return 0, fmt.Errorf("%w: %q", model.ErrNonParsableInterval, raw)
	}

	ms := int64(quantity * multiplier)
	if ms <= 0 {
		return 0, fmt.Errorf("%w: %q", model.ErrNonParsableInterval, raw)
	}
	return ms, nil
}

func parseQuantity(token string) (float64, error) {
	switch token {
	case "a", "an", "one":
		return 1, nil
	default:
		return strconv.ParseFloat(token, 64)
	}
}

// singularize strips a trailing "s" from unit words like "seconds" or
// "minutes". None of the eight known unit words need anything more
// elaborate than that.
func singularize(unit string) string {
	return strings.TrimSuffix(unit, "s")
}
