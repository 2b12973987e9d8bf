/*
Package ldap provides the protocol layer of the corporate directory
service: a managed session over a single LDAP connection, a paginated
search primitive, DN helpers and a typed error taxonomy.

# Session Lifecycle

A SessionManager owns exactly one underlying connection:

  - Connect is idempotent and safe for concurrent use
  - authentication configuration is validated before any network attempt
  - failed attempts retry a bounded number of times with a fixed delay
  - a connection is accepted only after a liveness probe returns a record
  - Disconnect never fails; unbind problems are logged and the slot cleared

Searches do not hold the session lock, so a slow query never blocks
connection management.

# Searching

Search drives the simple paged results control and flattens responses
into Entry values whose single-valued attributes are plain strings.
Result counts are capped client-side:

  - an explicit SizeLimit on the request wins
  - otherwise the configured max_results cap applies
  - a page is truncated mid-stream the moment the cap is reached

# Error Handling

All failures surface as *LDAPError:

  - categorized (configuration, connection, authentication, permission,
    not_found, validation, server, unknown)
  - LDAP result code preserved when the server produced one
  - retryable classification for connection management
  - server diagnostic message and matched DN retained

Absence of a record is not an error: lookup operations in the layers
above report it as a boolean alongside the result.

# Example Usage

	cfg, err := config.Load("corpdir.json", "")
	if err != nil {
		return err
	}
	session := ldap.NewSessionManager(cfg, ldap.NewZapLogger(nil))
	defer session.Disconnect()

	entries, err := session.Search(ctx, &ldap.SearchRequest{
		BaseDN: cfg.Connection.BaseDN,
		Scope:  ldap.ScopeWholeSubtree,
		Filter: "(uid=jdoe)",
	})
*/
package ldap
