// Package email normalizes recipient addresses.
package email

import (
	"net/mail"
	"strings"

	dErrors "campaign/pkg/domain-errors"
)

// Normalize validates addr and returns its canonical form: the bare address
// with the domain lowercased. Display names are rejected.
func Normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", dErrors.New(dErrors.CodeValidation, "address is required")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Name != "" || parsed.Address != addr {
		return "", dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	at := strings.LastIndexByte(parsed.Address, '@')
	return parsed.Address[:at] + "@" + strings.ToLower(parsed.Address[at+1:]), nil
}

// Domain returns the lowercased domain part of a normalized address.
func Domain(addr string) string {
	if at := strings.LastIndexByte(addr, '@'); at >= 0 {
		return strings.ToLower(addr[at+1:])
	}
	return ""
}
