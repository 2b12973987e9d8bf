package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Search() passes scope and deref values to go-ldap as plain ints, which
// only works while the constants stay ordinally identical.
func TestScopeAndDerefMatchWireValues(t *testing.T) {
	assert.Equal(t, ldap.ScopeBaseObject, int(ScopeBaseObject))
	assert.Equal(t, ldap.ScopeSingleLevel, int(ScopeSingleLevel))
	assert.Equal(t, ldap.ScopeWholeSubtree, int(ScopeWholeSubtree))

	assert.Equal(t, ldap.NeverDerefAliases, int(NeverDerefAliases))
	assert.Equal(t, ldap.DerefInSearching, int(DerefInSearching))
	assert.Equal(t, ldap.DerefFindingBaseObj, int(DerefFindingBaseObj))
	assert.Equal(t, ldap.DerefAlways, int(DerefAlways))
}

func TestSearchScopeString(t *testing.T) {
	assert.Equal(t, "base", ScopeBaseObject.String())
	assert.Equal(t, "one", ScopeSingleLevel.String())
	assert.Equal(t, "sub", ScopeWholeSubtree.String())
}

func TestEntryFlattening(t *testing.T) {
	raw := &ldap.Entry{
		DN: "uid=alice,ou=users,dc=example,dc=com",
		Attributes: []*ldap.EntryAttribute{
			{Name: "uid", Values: []string{"alice"}},
			{Name: "cn", Values: []string{"Alice Example"}},
			{Name: "mail", Values: []string{"alice@example.com", "aexample@example.com"}},
			{Name: "title"},
		},
	}

	entry := newEntry(raw)

	assert.Equal(t, "uid=alice,ou=users,dc=example,dc=com", entry.DN)
	assert.Equal(t, "alice", entry.Attributes["uid"])
	assert.Equal(t, "Alice Example", entry.Attributes["cn"])
	assert.Equal(t, []string{"alice@example.com", "aexample@example.com"}, entry.Attributes["mail"])

	// A returned attribute without values must stay absent entirely.
	_, present := entry.Attributes["title"]
	assert.False(t, present)
}

func TestNewEntryMatchesSearchFlattening(t *testing.T) {
	entry := NewEntry("cn=admins,ou=groups,dc=example,dc=com", map[string][]string{
		"cn":     {"admins"},
		"member": {"uid=alice,ou=users,dc=example,dc=com", "uid=bob,ou=users,dc=example,dc=com"},
		"owner":  nil,
	})

	assert.Equal(t, "admins", entry.Attributes["cn"])
	assert.Len(t, entry.Attributes["member"], 2)
	assert.NotContains(t, entry.Attributes, "owner")
}

func TestEntryGetters(t *testing.T) {
	entry := NewEntry("uid=alice,ou=users,dc=example,dc=com", map[string][]string{
		"uid":  {"alice"},
		"mail": {"alice@example.com", "aexample@example.com"},
	})

	assert.Equal(t, "alice", entry.GetString("uid"))
	assert.Equal(t, "alice@example.com", entry.GetString("mail"))
	assert.Equal(t, "", entry.GetString("manager"))

	assert.Equal(t, []string{"alice"}, entry.GetStrings("uid"))
	assert.Equal(t, []string{"alice@example.com", "aexample@example.com"}, entry.GetStrings("mail"))
	assert.Nil(t, entry.GetStrings("manager"))

	assert.True(t, entry.Has("uid"))
	assert.False(t, entry.Has("manager"))
}

func TestEntryGettersFoldCase(t *testing.T) {
	entry := NewEntry("uid=alice,ou=users,dc=example,dc=com", map[string][]string{
		"displayName": {"Alice Example"},
	})

	require.True(t, entry.Has("displayname"))
	assert.Equal(t, "Alice Example", entry.GetString("DISPLAYNAME"))
	assert.Equal(t, []string{"Alice Example"}, entry.GetStrings("displayname"))
}
