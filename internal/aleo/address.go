package aleo

import "strings"

// AddressLength is the length of a bech32m Aleo account address.
const AddressLength = 63

// IsValidAddress does a shape check on an account address: the aleo1 prefix,
// the fixed length, and the bech32 character set. Checksum verification is
// left to the wallet.
func IsValidAddress(addr string) bool {
	if len(addr) != AddressLength || !strings.HasPrefix(addr, "aleo1") {
		return false
	}
	for _, c := range addr[5:] {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
		// bech32 excludes 1, b, i, o past the separator
		if c == '1' || c == 'b' || c == 'i' || c == 'o' {
			return false
		}
	}
	return true
}
