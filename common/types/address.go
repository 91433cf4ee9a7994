package types

import "strings"

// lowerHex lowercases a hex address string. Addresses are stored and
// looked up lowercased throughout the data model; this is the single
// place that rule is applied.
func lowerHex(addr string) string {
	return strings.ToLower(addr)
}
