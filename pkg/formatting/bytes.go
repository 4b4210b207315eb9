// Package formatting converts byte sizes between counts and human-readable strings.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// binary aliases accepted on input only
var aliases = map[string]string{
	"":    "B",
	"K":   "KB",
	"KIB": "KB",
	"M":   "MB",
	"MIB": "MB",
	"G":   "GB",
	"GIB": "GB",
	"T":   "TB",
	"TIB": "TB",
}

var bytesPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// FormatBytes renders n with base-1024 units and one decimal place,
// e.g. 6000 -> "5.9 KB". Values under 1 KB are rendered as whole bytes.
func FormatBytes(n int64) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}

	return strconv.FormatFloat(size, 'f', 1, 64) + " " + units[i]
}

// ParseBytes parses sizes like "50MB", "100 MiB", "512k" or "2048" into a byte count.
// Units are base-1024 and case-insensitive; a bare number is bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	m := bytesPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	unit := strings.ToUpper(m[2])
	if alias, ok := aliases[unit]; ok {
		unit = alias
	}

	for i, u := range units {
		if u == unit {
			return int64(value * math.Pow(1024, float64(i))), nil
		}
	}

	return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
}
