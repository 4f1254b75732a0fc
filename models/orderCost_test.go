package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeBaseCost(t *testing.T) {
	cases := []struct {
		name string
		cost string
		rate string
		want string
	}{
		{"converts with positive rate", "68000", "0.1408", "9574.4"},
		{"identity rate", "3400", "1", "3400"},
		{"zero rate falls back to 1", "500", "0", "500"},
		{"negative rate falls back to 1", "500", "-2", "500"},
		{"negative cost propagates", "-100", "2", "-200"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cost, err := decimal.NewFromString(tc.cost)
			if err != nil {
				t.Fatal(err)
			}
			rate, err := decimal.NewFromString(tc.rate)
			if err != nil {
				t.Fatal(err)
			}
			want, err := decimal.NewFromString(tc.want)
			if err != nil {
				t.Fatal(err)
			}
			got := ComputeBaseCost(cost, rate)
			if !got.Equal(want) {
				t.Fatalf("ComputeBaseCost(%s, %s) = %s, want %s", tc.cost, tc.rate, got, tc.want)
			}
		})
	}
}
