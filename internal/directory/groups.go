package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

// groupContainers are the conventional group containers probed when no
// group search base is configured.
var groupContainers = []string{"ou=groups", "ou=adhoc,ou=managedGroups", "cn=groups", "ou=group"}

var groupAttributes = []string{
	attrCN,
	attrDescription,
	attrDisplayName,
	attrMember,
	attrUniqueMember,
	attrMemberUID,
	attrGIDNumber,
}

var membershipAttributes = []string{attrMember, attrUniqueMember, attrMemberUID}

// GroupResolver answers group searches and membership queries across
// the member, uniqueMember and memberUid conventions.
type GroupResolver struct {
	search  Searcher
	people  *PeopleResolver
	cfg     *config.Config
	norm    *Normalizer
	filters *FilterBuilder
	log     ldap.Logger

	// mu guards base, the cached probe result.
	mu   sync.Mutex
	base string
}

func NewGroupResolver(search Searcher, people *PeopleResolver, cfg *config.Config, log ldap.Logger) *GroupResolver {
	if log == nil {
		log = ldap.NewNopLogger()
	}
	return &GroupResolver{
		search:  search,
		people:  people,
		cfg:     cfg,
		norm:    NewNormalizer(cfg.Schema),
		filters: NewFilterBuilder(cfg.Schema),
		log:     log,
	}
}

// SearchGroups tries one filter per group object-class convention and
// stops at the first that yields results. Per-template failures are
// logged and skipped; exhausting every template yields an empty,
// non-error result.
func (r *GroupResolver) SearchGroups(ctx context.Context, query string, maxResults int) ([]*Group, error) {
	groups := []*Group{}
	seen := make(map[string]bool)

	for _, filter := range r.filters.GroupQueries(query) {
		entries, err := r.search.Search(ctx, &ldap.SearchRequest{
			BaseDN:     r.searchBase(ctx),
			Scope:      ldap.ScopeWholeSubtree,
			Filter:     filter,
			Attributes: groupAttributes,
			SizeLimit:  maxResults,
		})
		if err != nil {
			r.log.Debug("group filter failed", map[string]any{"filter": filter, "error": err.Error()})
			continue
		}

		for _, e := range entries {
			group := r.norm.Group(e)
			key := strings.ToLower(group.DN)
			if seen[key] {
				continue
			}
			seen[key] = true
			groups = append(groups, group)
		}
		if len(groups) > 0 {
			break
		}
	}

	if maxResults > 0 && len(groups) > maxResults {
		groups = groups[:maxResults]
	}
	r.log.Info("group search completed", map[string]any{"query": query, "count": len(groups)})
	return groups, nil
}

// GetPersonGroups returns every group the person belongs to under any
// of the three membership conventions, deduplicated by group DN. An
// unknown person yields an empty result.
func (r *GroupResolver) GetPersonGroups(ctx context.Context, personID string) ([]*Group, error) {
	person, ok, err := r.people.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.log.Warn("person not found", map[string]any{"identifier": personID})
		return []*Group{}, nil
	}

	lookups := []struct {
		attr  string
		value string
	}{
		{attrMember, person.DN},
		{attrUniqueMember, person.DN},
		{attrMemberUID, person.UID},
	}

	groups := []*Group{}
	seen := make(map[string]bool)
	for _, lookup := range lookups {
		if lookup.value == "" {
			continue
		}
		entries, err := r.search.Search(ctx, &ldap.SearchRequest{
			BaseDN:     r.searchBase(ctx),
			Scope:      ldap.ScopeWholeSubtree,
			Filter:     r.filters.GroupsByMember(lookup.attr, lookup.value),
			Attributes: groupAttributes,
		})
		if err != nil {
			r.log.Debug("membership search failed", map[string]any{"attribute": lookup.attr, "error": err.Error()})
			continue
		}
		for _, e := range entries {
			group := r.norm.Group(e)
			key := strings.ToLower(group.DN)
			if seen[key] {
				continue
			}
			seen[key] = true
			groups = append(groups, group)
		}
	}

	r.log.Info("person groups resolved", map[string]any{"uid": person.UID, "count": len(groups)})
	return groups, nil
}

// GetGroupMembers resolves every member of a group to a Person,
// deduplicated by uid across the membership conventions. Members that
// fail to resolve are logged and skipped; an unknown group yields an
// empty result.
func (r *GroupResolver) GetGroupMembers(ctx context.Context, nameOrDN string) ([]*Person, error) {
	groupDN := nameOrDN
	if !ldap.LooksLikeDN(nameOrDN) {
		groups, err := r.SearchGroups(ctx, nameOrDN, 1)
		if err != nil {
			return nil, err
		}
		if len(groups) == 0 {
			r.log.Warn("group not found", map[string]any{"group": nameOrDN})
			return []*Person{}, nil
		}
		groupDN = groups[0].DN
	}

	entries, err := r.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     groupDN,
		Scope:      ldap.ScopeBaseObject,
		Filter:     "(objectClass=*)",
		Attributes: membershipAttributes,
		SizeLimit:  1,
	})
	if err != nil {
		if ldap.IsNotFoundError(err) {
			r.log.Warn("group not found", map[string]any{"group": groupDN})
			return []*Person{}, nil
		}
		return nil, err
	}
	if len(entries) == 0 {
		r.log.Warn("group not found", map[string]any{"group": groupDN})
		return []*Person{}, nil
	}
	group := entries[0]

	members := []*Person{}
	seenUID := make(map[string]bool)

	memberDNs := append(group.GetStrings(attrMember), group.GetStrings(attrUniqueMember)...)
	for _, dn := range lo.UniqBy(memberDNs, strings.ToLower) {
		person, ok, err := r.people.GetPerson(ctx, dn)
		if err != nil || !ok {
			r.log.Debug("could not resolve group member", map[string]any{"member": dn})
			continue
		}
		if person.UID != "" {
			if seenUID[person.UID] {
				continue
			}
			seenUID[person.UID] = true
		}
		members = append(members, person)
	}

	for _, uid := range lo.Uniq(group.GetStrings(attrMemberUID)) {
		if seenUID[uid] {
			continue
		}
		person, ok, err := r.people.GetPerson(ctx, uid)
		if err != nil || !ok {
			r.log.Debug("could not resolve group member", map[string]any{"member": uid})
			continue
		}
		if person.UID != "" {
			if seenUID[person.UID] {
				continue
			}
			seenUID[person.UID] = true
		}
		members = append(members, person)
	}

	r.log.Info("group members resolved", map[string]any{"group": groupDN, "count": len(members)})
	return members, nil
}

// GroupDetails looks up one group by name or DN with its full attribute
// set. Absence is reported through the boolean.
func (r *GroupResolver) GroupDetails(ctx context.Context, nameOrDN string) (*Group, bool, error) {
	iq := r.filters.GroupIdentifier(nameOrDN)

	baseDN := iq.BaseDN
	if baseDN == "" {
		baseDN = r.searchBase(ctx)
	}

	entries, err := r.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     baseDN,
		Scope:      iq.Scope,
		Filter:     iq.Filter,
		Attributes: []string{"*"},
		SizeLimit:  1,
	})
	if err != nil {
		if ldap.IsNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}

	return r.norm.Group(entries[0]), true, nil
}

// searchBase mirrors the people resolver's probing over the
// conventional group containers.
func (r *GroupResolver) searchBase(ctx context.Context) string {
	if base := r.cfg.Schema.GroupSearchBase; base != "" {
		return base
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.base != "" {
		return r.base
	}

	baseDN := r.cfg.Connection.BaseDN
	for _, container := range groupContainers {
		candidate := fmt.Sprintf("%s,%s", container, baseDN)
		entries, err := r.search.Search(ctx, &ldap.SearchRequest{
			BaseDN:    candidate,
			Scope:     ldap.ScopeBaseObject,
			Filter:    "(objectClass=*)",
			SizeLimit: 1,
		})
		if err != nil || len(entries) == 0 {
			continue
		}
		r.log.Info("using group search base", map[string]any{"base": candidate})
		r.base = candidate
		return r.base
	}

	r.log.Warn("no group container found, using base DN", map[string]any{"base": baseDN})
	r.base = baseDN
	return r.base
}
