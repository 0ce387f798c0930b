package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLowOnStock(t *testing.T) {
	cases := []struct {
		name      string
		stock     int64
		threshold int64
		want      bool
	}{
		{"above threshold", 10, 5, false},
		{"at threshold", 5, 5, true},
		{"below threshold", 2, 5, true},
		{"zero stock", 0, 5, true},
		{"threshold disabled", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Product{Stock: tc.stock, LowStockThreshold: tc.threshold}
			require.Equal(t, tc.want, p.LowOnStock())
		})
	}
}
