package exporter

import (
	"strconv"
)

// formatFloat formats a float64 with the shortest exact representation
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatProbability formats a probability with fixed precision so columns line up
func formatProbability(p float64) string {
	return strconv.FormatFloat(p, 'f', 6, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatOptionalInt formats a nullable int, empty when absent
func formatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return formatInt(int64(*i))
}
