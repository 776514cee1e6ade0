package analytics

import "testing"

func TestInferNetwork(t *testing.T) {
	vectors := []struct {
		code string
		want Network
	}{
		{"10.4", Visa},
		{"13.1", Visa},
		{"13.7", Visa},
		{"12.6.1", Visa},
		{" 11.3 ", Visa},
		{"4853", Mastercard},
		{"4837", Mastercard},
		{"4553", Discover},
		{"4541", Discover},
		{"C08", Amex},
		{"F24", Amex},
		{"FR2", Amex},
		{"a01", Amex},
		{"P08", Amex},
		{"", Other},
		{"1.4", Other},
		{"483", Other},
		{"48531", Other},
		{"4999", Other},
		{"ABC123", Other},
		{"zz-99", Other},
	}
	for _, v := range vectors {
		if got := InferNetwork(v.code); got != v.want {
			t.Errorf("InferNetwork(%q) = %s, want %s", v.code, got, v.want)
		}
	}
}
