package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration extends time.ParseDuration with days (d) and weeks (w),
// which may lead a compound value such as "1d12h" or "2w3d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var total time.Duration
	for _, unit := range []struct {
		suffix string
		size   time.Duration
	}{{"w", 7 * 24 * time.Hour}, {"d", 24 * time.Hour}} {
		idx := strings.Index(s, unit.suffix)
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(s[:idx])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid %s value: %s", unit.suffix, s[:idx])
		}
		total += time.Duration(n) * unit.size
		s = s[idx+1:]
	}
	if s == "" {
		return total, nil
	}

	rest, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if rest < 0 {
		return 0, fmt.Errorf("negative duration: %s", s)
	}
	return total + rest, nil
}

// FormatDuration renders d the way ParseDuration accepts it, using days for long spans.
func FormatDuration(d time.Duration) string {
	if d < 24*time.Hour {
		return d.String()
	}
	days := d / (24 * time.Hour)
	rest := d - days*24*time.Hour
	if rest == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%s", days, rest)
}
