package validation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Violations maps a field name to a violation code ("required", ...).
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error lists the violations in field order so Violations can travel as an error.
func (v Violations) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, v[f])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Err returns v as an error, or nil when there is nothing to report.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// ParseFloat reads a form number, accepting a decimal comma ("12,50").
// Blank input is zero. Unparsable or non-finite input ("NaN", "Inf")
// records "invalid_number".
func ParseFloat(field, raw string, v Violations) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		v[field] = "invalid_number"
		return 0
	}
	return f
}
