package ldap

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// String returns the RFC 4516 scope keyword.
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	default:
		return "sub"
	}
}

// DerefAliases defines alias dereferencing behavior.
type DerefAliases int

const (
	NeverDerefAliases DerefAliases = iota
	DerefInSearching
	DerefFindingBaseObj
	DerefAlways
)

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string

	// SizeLimit caps the number of returned entries. Zero applies the
	// configured max_results cap instead; the cap is always enforced
	// client-side, never sent to the server.
	SizeLimit int

	DerefAliases DerefAliases
}

// Entry is one directory record. Attribute values are flattened: a
// single-valued attribute is a plain string, a multi-valued attribute a
// []string. Attributes the server did not return are absent from the
// map, never present as empty values.
type Entry struct {
	DN         string         `json:"dn"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewEntry builds an Entry from raw attribute values, applying the same
// single-value flattening as search results. Intended for fixtures.
func NewEntry(dn string, attributes map[string][]string) *Entry {
	attrs := make(map[string]any, len(attributes))
	for name, values := range attributes {
		setFlattened(attrs, name, values)
	}
	return &Entry{DN: dn, Attributes: attrs}
}

func newEntry(e *ldap.Entry) *Entry {
	attrs := make(map[string]any, len(e.Attributes))
	for _, attr := range e.Attributes {
		setFlattened(attrs, attr.Name, attr.Values)
	}
	return &Entry{DN: e.DN, Attributes: attrs}
}

func setFlattened(attrs map[string]any, name string, values []string) {
	switch len(values) {
	case 0:
		// Attribute without values stays absent.
	case 1:
		attrs[name] = values[0]
	default:
		copied := make([]string, len(values))
		copy(copied, values)
		attrs[name] = copied
	}
}

// GetString returns the first value of the named attribute, or "".
func (e *Entry) GetString(name string) string {
	switch v := e.lookup(name).(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// GetStrings returns all values of the named attribute, or nil.
func (e *Entry) GetStrings(name string) []string {
	switch v := e.lookup(name).(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

// Get returns the flattened value of the named attribute: a string for
// single-valued attributes, a []string otherwise.
func (e *Entry) Get(name string) (any, bool) {
	v := e.lookup(name)
	return v, v != nil
}

// Has reports whether the entry carries the named attribute.
func (e *Entry) Has(name string) bool {
	return e.lookup(name) != nil
}

// lookup resolves an attribute value. Attribute names are
// case-insensitive in LDAP, so a direct hit is tried first and a folded
// scan second.
func (e *Entry) lookup(name string) any {
	if v, ok := e.Attributes[name]; ok {
		return v
	}
	for k, v := range e.Attributes {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}
