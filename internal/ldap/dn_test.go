package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain value", "alice", "alice"},
		{"asterisk", "a*b", `a\2ab`},
		{"parentheses", "(admin)", `\28admin\29`},
		{"backslash", `back\slash`, `back\5cslash`},
		{"all special characters", `*()\`, `\2a\28\29\5c`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.input))
		})
	}
}

func TestLooksLikeDN(t *testing.T) {
	assert.True(t, LooksLikeDN("uid=alice,ou=users,dc=example,dc=com"))
	assert.True(t, LooksLikeDN("cn=admins,dc=example,dc=com"))

	assert.False(t, LooksLikeDN("alice"))
	assert.False(t, LooksLikeDN("alice@example.com"))
	assert.False(t, LooksLikeDN("uid=alice"))
	assert.False(t, LooksLikeDN("alice,bob"))
}

func TestExtractRDNValue(t *testing.T) {
	dn := "uid=alice,ou=users,dc=example,dc=com"

	assert.Equal(t, "alice", ExtractRDNValue(dn, "uid"))
	assert.Equal(t, "alice", ExtractRDNValue(dn, "UID"))
	assert.Equal(t, "users", ExtractRDNValue(dn, "ou"))
	assert.Equal(t, "", ExtractRDNValue(dn, "cn"))

	// Escaped characters in the RDN value come back unescaped.
	assert.Equal(t, "Smith, John", ExtractRDNValue(`cn=Smith\, John,ou=users,dc=example,dc=com`, "cn"))

	assert.Equal(t, "", ExtractRDNValue("not a dn", "uid"))
	assert.Equal(t, "", ExtractRDNValue("", "uid"))
}

func TestEqualDN(t *testing.T) {
	assert.True(t, EqualDN(
		"uid=alice,ou=users,dc=example,dc=com",
		"uid=alice,ou=users,dc=example,dc=com",
	))
	assert.True(t, EqualDN(
		"UID=Alice,OU=Users,DC=Example,DC=Com",
		"uid=alice,ou=users,dc=example,dc=com",
	))
	assert.True(t, EqualDN(
		"uid=alice, ou=users, dc=example, dc=com",
		"uid=alice,ou=users,dc=example,dc=com",
	))

	assert.False(t, EqualDN(
		"uid=alice,ou=users,dc=example,dc=com",
		"uid=bob,ou=users,dc=example,dc=com",
	))
	assert.False(t, EqualDN("not a dn", "uid=alice,ou=users,dc=example,dc=com"))
}
