package aleo

import "testing"

func TestIsValidAddress(t *testing.T) {
	valid := "aleo1" + repeat('q', 58)
	cases := []struct {
		addr string
		want bool
	}{
		{valid, true},
		{"aleo1" + repeat('q', 57), false},      // too short
		{"aleo2" + repeat('q', 58), false},      // wrong prefix
		{"aleo1" + repeat('q', 57) + "B", false}, // uppercase
		{"aleo1" + repeat('q', 57) + "b", false}, // excluded bech32 char
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidAddress(tc.addr); got != tc.want {
			t.Errorf("IsValidAddress(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func repeat(c byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
