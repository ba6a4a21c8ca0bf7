package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SilenceDB is the level DecibelFormatter shows as -∞.
const SilenceDB = -60.0

// DecibelFormatter shows a dB value with one decimal, or -∞ at and
// below SilenceDB.
func DecibelFormatter(db float64) string {
	if db <= SilenceDB {
		return "-∞ dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// DecibelParser reads "-6 dB", "-6db", "-6" or "-∞".
func DecibelParser(str string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(str))
	if strings.Contains(s, "∞") || strings.Contains(s, "inf") {
		return SilenceDB, nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "db"))
	db, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse dB %q: %w", str, err)
	}
	return db, nil
}

func OnOffFormatter(value float64) string {
	if value >= 0.5 {
		return "On"
	}
	return "Off"
}

// ListFormatter shows the label at the rounded plain value.
func ListFormatter(labels []string) func(float64) string {
	return func(v float64) string {
		i := int(math.Round(v))
		if i < 0 || i >= len(labels) {
			return strconv.Itoa(i)
		}
		return labels[i]
	}
}

// ListParser accepts a label, case-insensitively, or its index.
func ListParser(labels []string) func(string) (float64, error) {
	return func(s string) (float64, error) {
		s = strings.TrimSpace(s)
		for i, l := range labels {
			if strings.EqualFold(l, s) {
				return float64(i), nil
			}
		}
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 || i >= len(labels) {
			return 0, fmt.Errorf("unknown choice %q", s)
		}
		return float64(i), nil
	}
}

// CountFormatter shows a whole count followed by unit.
func CountFormatter(unit string) func(float64) string {
	return func(v float64) string {
		return fmt.Sprintf("%d %s", int64(math.Round(v)), unit)
	}
}
