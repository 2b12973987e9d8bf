package ldap

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Escape escapes the RFC 4515 filter metacharacters in value. Every
// user-supplied fragment placed into a search filter goes through here.
func Escape(value string) string {
	return ldap.EscapeFilter(value)
}

// LooksLikeDN reports whether s has distinguished-name shape: at least
// one attribute=value pair with a comma-separated ancestry.
func LooksLikeDN(s string) bool {
	return strings.Contains(s, "=") && strings.Contains(s, ",")
}

// ExtractRDNValue returns the value of the first RDN of dn whose
// attribute type matches attrType (case-insensitive), with DN escaping
// undone. Empty when dn does not parse or has no such RDN.
func ExtractRDNValue(dn, attrType string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return ""
	}

	for _, rdn := range parsed.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, attrType) {
				return attr.Value
			}
		}
	}

	return ""
}

// EqualDN compares two DNs under LDAP equality: attribute types and
// values case-insensitive, inter-RDN whitespace ignored.
func EqualDN(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}

	pa, err := ldap.ParseDN(a)
	if err != nil {
		return false
	}
	pb, err := ldap.ParseDN(b)
	if err != nil {
		return false
	}

	return pa.Equal(pb)
}
