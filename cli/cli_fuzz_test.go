package cli

import (
	"testing"
)

func FuzzFormatNumber(f *testing.F) {
	f.Add(0.0)
	f.Add(-1234567.5)
	f.Add(999.0)
	f.Add(1e21)
	f.Add(0.000001)

	f.Fuzz(func(t *testing.T, v float64) {
		// Should not panic
		formatNumber(v)
	})
}
