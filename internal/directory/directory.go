package directory

import (
	"context"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

// Searcher is the slice of the session manager the resolvers depend on.
type Searcher interface {
	Search(ctx context.Context, req *ldap.SearchRequest) ([]*ldap.Entry, error)
}

// Directory bundles the resolvers sharing one session.
type Directory struct {
	People    *PeopleResolver
	Org       *OrgResolver
	Groups    *GroupResolver
	Locations *LocationResolver
}

// New wires the resolver set against a session. A nil logger discards
// output.
func New(search Searcher, cfg *config.Config, log ldap.Logger) *Directory {
	if log == nil {
		log = ldap.NewNopLogger()
	}

	people := NewPeopleResolver(search, cfg, log)
	return &Directory{
		People:    people,
		Org:       NewOrgResolver(search, people, cfg, log),
		Groups:    NewGroupResolver(search, people, cfg, log),
		Locations: NewLocationResolver(search, people, cfg, log),
	}
}
