package domain

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2,50 €", 2.50},
		{"2.50", 2.50},
		{"1,00 €", 1.00},
		{"0,99 €", 0.99},
		{"1.234,50 EUR", 1234.50},
		{"", 0},
		{"   ", 0},
		{"garbage", 0},
		{"€", 0},
	}

	for _, tt := range tests {
		if got := ParsePrice(tt.in); got != tt.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
