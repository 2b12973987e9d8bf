/*
Package directory builds identity, hierarchy, group, and location queries
on top of the raw LDAP session layer.

Every resolver here is a thin consumer of the session's paginated search
primitive: raw entries flow through the Normalizer into canonical Person
and Group values, and the derived operations (manager chains, org charts,
membership resolution, location aggregation) are computed per request —
the directory itself stays the single source of truth and nothing is
cached except the probed search bases.

# Resolvers

  - PeopleResolver: free-text people search and identifier lookup.
  - OrgResolver: manager chains, direct reports, bounded-depth org
    charts, common-manager resolution.
  - GroupResolver: group search across object-class conventions and
    membership resolution across member, uniqueMember and memberUid.
  - LocationResolver: office buckets, per-location people lists and
    aggregate statistics.

# Schema Conventions

The resolvers reconcile three competing schema conventions: standard
LDAP person/group attributes, POSIX groups, and a corporate extension
attribute set configured per deployment. Attribute precedence is fixed
in the Normalizer; which extension attributes are requested at all is
driven by the schema configuration resolved once at construction.

# Absence

Single-entity lookups report absence with an explicit boolean, never an
error. Aggregate operations skip members they cannot resolve and return
partial results; only transport and directory failures surface as
errors.

# Example Usage

	cfg, _ := config.Load("corpdir.json", "")
	session := ldap.NewSessionManager(cfg, logger)
	dir := directory.New(session, cfg, logger)

	people, err := dir.People.SearchPeople(ctx, "alice", 10)
	chain, err := dir.Org.GetManagerChain(ctx, "alice")
*/
package directory
