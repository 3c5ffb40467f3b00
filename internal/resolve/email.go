// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"net/mail"
	"strings"
)

// ValidEmail reports whether s is a bare, RFC 5322 shaped address with a
// dotted domain ("jane@uni.edu"). Display names and angle brackets are
// rejected. No DNS lookups are made.
func ValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}

// ValidEmails reports whether the list is non-empty and every address is
// valid.
func ValidEmails(list []string) bool {
	if len(list) == 0 {
		return false
	}
	for _, e := range list {
		if !ValidEmail(e) {
			return false
		}
	}
	return true
}
