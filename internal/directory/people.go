package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

// peopleContainers are the conventional people containers probed when no
// person search base is configured.
var peopleContainers = []string{"ou=users", "ou=people", "cn=users"}

// PeopleResolver answers free-text people searches and single-person
// lookups.
type PeopleResolver struct {
	search  Searcher
	cfg     *config.Config
	norm    *Normalizer
	filters *FilterBuilder
	log     ldap.Logger

	// mu guards base, the cached probe result.
	mu   sync.Mutex
	base string
}

func NewPeopleResolver(search Searcher, cfg *config.Config, log ldap.Logger) *PeopleResolver {
	if log == nil {
		log = ldap.NewNopLogger()
	}
	return &PeopleResolver{
		search:  search,
		cfg:     cfg,
		norm:    NewNormalizer(cfg.Schema),
		filters: NewFilterBuilder(cfg.Schema),
		log:     log,
	}
}

// SearchPeople returns up to maxResults people matching a free-text
// query.
func (r *PeopleResolver) SearchPeople(ctx context.Context, query string, maxResults int) ([]*Person, error) {
	filter := r.filters.PersonQuery(query)
	r.log.Debug("searching people", map[string]any{"query": query, "filter": filter})

	entries, err := r.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     r.searchBase(ctx),
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     filter,
		Attributes: personAttributes(r.cfg.Schema),
		SizeLimit:  maxResults,
	})
	if err != nil {
		return nil, err
	}

	people := make([]*Person, 0, len(entries))
	for _, e := range entries {
		people = append(people, r.norm.Person(e))
	}

	r.log.Info("people search completed", map[string]any{"query": query, "count": len(people)})
	return people, nil
}

// SearchPeopleSummary is SearchPeople with a minimal attribute set and
// summary-shaped results.
func (r *PeopleResolver) SearchPeopleSummary(ctx context.Context, query string, maxResults int) ([]*PersonSummary, error) {
	entries, err := r.search.Search(ctx, &ldap.SearchRequest{
		BaseDN:     r.searchBase(ctx),
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     r.filters.PersonQuery(query),
		Attributes: personSummaryAttributes,
		SizeLimit:  maxResults,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]*PersonSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, r.norm.PersonSummary(e))
	}
	return summaries, nil
}

// GetPerson looks up one person by uid, email address or DN. Absence is
// reported through the boolean, not an error.
func (r *PeopleResolver) GetPerson(ctx context.Context, identifier string) (*Person, bool, error) {
	iq := r.filters.PersonIdentifier(identifier)

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
		// A missing DN base is an absent person, not a failure.
		if ldap.IsNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(entries) == 0 {
		r.log.Debug("person not found", map[string]any{"identifier": identifier})
		return nil, false, nil
	}

	return r.norm.Person(entries[0]), true, nil
}

// searchBase resolves where people searches are rooted: the configured
// person search base when set, otherwise the first conventional
// container under the base DN that exists. The probe result is cached;
// when nothing matches, the base DN itself is used with a warning.
func (r *PeopleResolver) searchBase(ctx context.Context) string {
	if base := r.cfg.Schema.PersonSearchBase; base != "" {
		return base
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.base != "" {
		return r.base
	}

	baseDN := r.cfg.Connection.BaseDN
	for _, container := range peopleContainers {
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
		r.log.Info("using people search base", map[string]any{"base": candidate})
		r.base = candidate
		return r.base
	}

	r.log.Warn("no people container found, using base DN", map[string]any{"base": baseDN})
	r.base = baseDN
	return r.base
}
