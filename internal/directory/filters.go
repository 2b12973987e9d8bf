package directory

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

// groupClassCascade is the ordered set of group object-class conventions
// tried by group searches. A deployment-specific class from the schema
// configuration is prepended when it is not already covered.
var groupClassCascade = []string{"group", "groupOfNames", "groupOfUniqueNames", "posixGroup"}

// FilterBuilder constructs directory filter expressions. All untrusted
// fragments are escaped before interpolation; schema knowledge (object
// classes, the department-bearing attribute) is resolved once at
// construction.
type FilterBuilder struct {
	personClass    string
	groupClasses   []string
	departmentAttr string
}

func NewFilterBuilder(schema config.SchemaConfig) *FilterBuilder {
	personClass := schema.PersonObjectClass
	if personClass == "" {
		personClass = "person"
	}

	groupClasses := groupClassCascade
	if schema.GroupObjectClass != "" && !containsFold(groupClasses, schema.GroupObjectClass) {
		groupClasses = append([]string{schema.GroupObjectClass}, groupClasses...)
	}

	departmentAttr := attrDepartment
	if containsFold(schema.ExtensionAttributes, extCostCenterDesc) {
		departmentAttr = extCostCenterDesc
	}

	return &FilterBuilder{
		personClass:    personClass,
		groupClasses:   groupClasses,
		departmentAttr: departmentAttr,
	}
}

func containsFold(values []string, target string) bool {
	return lo.ContainsBy(values, func(v string) bool {
		return strings.EqualFold(v, target)
	})
}

// PersonQuery builds the search filter for a free-text people query.
// Heuristics, in order: an @ means an email fragment; a single
// unspaced alphanumeric token (dots, dashes, underscores allowed) means
// an account name; one word fans out across name, contact, title and
// department attributes; anything longer becomes a common-name
// substring of the whole query.
func (f *FilterBuilder) PersonQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Sprintf("(objectClass=%s)", f.personClass)
	}
	escaped := ldap.Escape(query)

	if strings.Contains(query, "@") {
		return fmt.Sprintf("(&(objectClass=%s)(mail=*%s*))", f.personClass, escaped)
	}
	if looksLikeAccountName(query) {
		return fmt.Sprintf("(&(objectClass=%s)(|(uid=*%s*)(cn=*%s*)))", f.personClass, escaped, escaped)
	}

	terms := strings.Fields(escaped)
	if len(terms) == 1 {
		t := terms[0]
		return fmt.Sprintf(
			"(&(objectClass=%s)(|(cn=*%s*)(givenName=*%s*)(sn=*%s*)(uid=*%s*)(mail=*%s*)(title=*%s*)(%s=*%s*)))",
			f.personClass, t, t, t, t, t, t, f.departmentAttr, t)
	}
	return fmt.Sprintf("(&(objectClass=%s)(cn=*%s*))", f.personClass, escaped)
}

// looksLikeAccountName reports whether query is a plausible login name:
// no spaces, and alphanumeric once dots, dashes and underscores are
// stripped.
func looksLikeAccountName(query string) bool {
	if strings.Contains(query, " ") {
		return false
	}
	stripped := strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || r == '_' {
			return -1
		}
		return r
	}, query)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IdentifierQuery describes where and how to look up a single entity.
// An empty BaseDN means the caller's resolved search base applies.
type IdentifierQuery struct {
	BaseDN string
	Scope  ldap.SearchScope
	Filter string
}

// PersonIdentifier resolves the lookup strategy for a person
// identifier: an email address, a DN (looked up base-scope at the DN
// itself), or a uid.
func (f *FilterBuilder) PersonIdentifier(identifier string) IdentifierQuery {
	switch {
	case strings.Contains(identifier, "@"):
		return IdentifierQuery{
			Scope:  ldap.ScopeWholeSubtree,
			Filter: fmt.Sprintf("(mail=%s)", ldap.Escape(identifier)),
		}
	case ldap.LooksLikeDN(identifier):
		return IdentifierQuery{
			BaseDN: identifier,
			Scope:  ldap.ScopeBaseObject,
			Filter: fmt.Sprintf("(objectClass=%s)", f.personClass),
		}
	default:
		return IdentifierQuery{
			Scope:  ldap.ScopeWholeSubtree,
			Filter: fmt.Sprintf("(uid=%s)", ldap.Escape(identifier)),
		}
	}
}

// GroupIdentifier resolves the lookup strategy for a group name or DN.
func (f *FilterBuilder) GroupIdentifier(nameOrDN string) IdentifierQuery {
	if ldap.LooksLikeDN(nameOrDN) {
		return IdentifierQuery{
			BaseDN: nameOrDN,
			Scope:  ldap.ScopeBaseObject,
			Filter: "(objectClass=*)",
		}
	}
	return IdentifierQuery{
		Scope:  ldap.ScopeWholeSubtree,
		Filter: fmt.Sprintf("(cn=%s)", ldap.Escape(nameOrDN)),
	}
}

// GroupQueries builds one filter per group object-class convention, in
// cascade order. The first template also matches displayName; an empty
// query degenerates to bare object-class filters.
func (f *FilterBuilder) GroupQueries(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return lo.Map(f.groupClasses, func(class string, _ int) string {
			return fmt.Sprintf("(objectClass=%s)", class)
		})
	}

	escaped := ldap.Escape(query)
	filters := make([]string, 0, len(f.groupClasses))
	for i, class := range f.groupClasses {
		if i == 0 {
			filters = append(filters, fmt.Sprintf(
				"(&(objectClass=%s)(|(cn=*%s*)(description=*%s*)(displayName=*%s*)))",
				class, escaped, escaped, escaped))
			continue
		}
		filters = append(filters, fmt.Sprintf(
			"(&(objectClass=%s)(|(cn=*%s*)(description=*%s*)))",
			class, escaped, escaped))
	}
	return filters
}

// GroupsByMember matches groups carrying the given membership attribute
// value (a member DN or a POSIX uid).
func (f *FilterBuilder) GroupsByMember(attr, value string) string {
	return fmt.Sprintf("(%s=%s)", attr, ldap.Escape(value))
}

// DirectReports matches entries whose manager reference equals the
// given DN.
func (f *FilterBuilder) DirectReports(managerDN string) string {
	return fmt.Sprintf("(manager=%s)", ldap.Escape(managerDN))
}

// LocationSearch matches person entries, optionally narrowed to those
// whose location attributes contain query.
func (f *FilterBuilder) LocationSearch(query string) string {
	base := fmt.Sprintf("(objectClass=%s)", f.personClass)
	query = strings.TrimSpace(query)
	if query == "" {
		return base
	}

	escaped := ldap.Escape(query)
	var sb strings.Builder
	for _, attr := range []string{attrOffice, extLocation, attrCity, attrState, attrCountry} {
		fmt.Fprintf(&sb, "(%s=*%s*)", attr, escaped)
	}
	return fmt.Sprintf("(&%s(|%s))", base, sb.String())
}

// PeopleAtLocation matches person entries at a named office location.
func (f *FilterBuilder) PeopleAtLocation(location string) string {
	escaped := ldap.Escape(location)
	return fmt.Sprintf(
		"(&(objectClass=%s)(|(%s=*%s*)(%s=*%s*)(%s=*%s*)))",
		f.personClass, attrOffice, escaped, extLocation, escaped, attrCity, escaped)
}
