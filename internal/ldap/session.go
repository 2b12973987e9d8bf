package ldap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/corpdir/internal/config"
)

// conn is the slice of *ldap.Conn the session depends on, split out so
// tests can substitute a scripted connection.
type conn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(timeout time.Duration)
	Unbind() error
}

// SessionManager owns the single LDAP connection shared by every
// resolver. Connection management is serialized; searches run outside
// the lock on the established connection.
type SessionManager struct {
	cfg *config.Config
	log Logger

	// mu guards conn; never held across a search.
	mu   sync.Mutex
	conn conn

	// dial is replaced in tests.
	dial func(ctx context.Context) (conn, error)
}

// NewSessionManager builds a disconnected session manager. Connect, or
// the first Search, establishes the connection.
func NewSessionManager(cfg *config.Config, log Logger) *SessionManager {
	if log == nil {
		log = NewNopLogger()
	}
	s := &SessionManager{cfg: cfg, log: log}
	s.dial = s.dialServer
	return s
}

// Connect establishes and verifies the directory connection. It is
// idempotent: an established session is reused. Configuration problems
// fail on the first call without touching the network; transient
// failures retry a bounded number of times with a fixed delay.
func (s *SessionManager) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *SessionManager) connectLocked(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	if err := s.checkAuthConfig(); err != nil {
		return err
	}

	perf := &s.cfg.Performance
	var established conn
	err := retry.Do(
		func() error {
			c, err := s.attempt(ctx)
			if err != nil {
				return err
			}
			established = c
			return nil
		},
		retry.Attempts(uint(perf.MaxRetries)),
		retry.Delay(perf.RetryDelayDuration()),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			s.log.Warn("connection attempt failed", map[string]any{
				"attempt":      attempt + 1,
				"max_attempts": perf.MaxRetries,
				"error":        err.Error(),
			})
		}),
	)
	if err != nil {
		return &LDAPError{
			Operation: "connect",
			Category:  ErrorCategoryConnection,
			Message:   fmt.Sprintf("failed to connect to %s after %d attempts", s.cfg.Connection.Server, perf.MaxRetries),
			Retryable: true,
			Cause:     err,
		}
	}

	s.conn = established
	s.log.Info("session established", map[string]any{
		"server":      s.cfg.Connection.Server,
		"auth_method": s.cfg.Connection.AuthMethod,
	})
	return nil
}

// attempt dials, binds and verifies one candidate connection.
func (s *SessionManager) attempt(ctx context.Context) (conn, error) {
	c, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.bind(c); err != nil {
		_ = c.Unbind()
		return nil, err
	}
	if err := s.verify(c); err != nil {
		_ = c.Unbind()
		return nil, err
	}
	return c, nil
}

// checkAuthConfig rejects unusable authentication configuration before
// any network attempt is made.
func (s *SessionManager) checkAuthConfig() error {
	connCfg := &s.cfg.Connection
	switch connCfg.AuthMethod {
	case config.AuthAnonymous, "":
		return nil
	case config.AuthSimple:
		if connCfg.BindDN == "" || connCfg.Password == "" {
			return NewConfigurationError("bind", "simple authentication requires bind_dn and password")
		}
		return nil
	case config.AuthSASL:
		return NewConfigurationError("bind", "sasl authentication is not supported")
	default:
		return NewConfigurationError("bind", fmt.Sprintf("unknown authentication method %q", connCfg.AuthMethod))
	}
}

func (s *SessionManager) bind(c conn) error {
	connCfg := &s.cfg.Connection
	if connCfg.AuthMethod == config.AuthSimple {
		if err := c.Bind(connCfg.BindDN, connCfg.Password); err != nil {
			return NewLDAPError("bind", err)
		}
		return nil
	}
	if err := c.UnauthenticatedBind(""); err != nil {
		return NewLDAPError("bind", err)
	}
	return nil
}

// verify accepts a connection only when one of the liveness probes both
// succeeds and returns at least one record. A procedurally successful
// probe with zero records proves nothing about the configured base.
func (s *SessionManager) verify(c conn) error {
	baseDN := s.cfg.Connection.BaseDN
	personClass := s.cfg.Schema.PersonObjectClass
	if personClass == "" {
		personClass = "person"
	}

	probes := []struct {
		name string
		req  *ldap.SearchRequest
	}{
		{"base entry", ldap.NewSearchRequest(baseDN, ldap.ScopeBaseObject, ldap.NeverDerefAliases,
			1, 0, false, "(objectClass=*)", []string{"namingContexts"}, nil)},
		{"base subtree", ldap.NewSearchRequest(baseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
			1, 0, false, "(objectClass=*)", []string{"objectClass"}, nil)},
		{"person search", ldap.NewSearchRequest(baseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
			1, 0, false, fmt.Sprintf("(objectClass=%s)", personClass), []string{"uid"}, nil)},
	}

	var lastErr error
	for _, probe := range probes {
		result, err := c.Search(probe.req)
		// A size-limit overrun still proves the base is live.
		if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
			s.log.Debug("liveness probe failed", map[string]any{"probe": probe.name, "error": err.Error()})
			lastErr = err
			continue
		}
		if result != nil && len(result.Entries) > 0 {
			s.log.Debug("liveness probe passed", map[string]any{"probe": probe.name})
			return nil
		}
		s.log.Debug("liveness probe returned no entries", map[string]any{"probe": probe.name})
	}

	if lastErr != nil {
		return NewLDAPError("verify", lastErr)
	}
	return &LDAPError{
		Operation: "verify",
		Category:  ErrorCategoryConnection,
		Message:   "no liveness probe returned a record",
		Retryable: true,
	}
}

// Disconnect closes the session. It never fails: unbind problems are
// logged and the connection slot is cleared regardless.
func (s *SessionManager) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return
	}
	if err := s.conn.Unbind(); err != nil {
		s.log.Warn("error during disconnect", map[string]any{"error": err.Error()})
	}
	s.conn = nil
	s.log.Info("session closed", nil)
}

// WithSession runs fn against a connected session and disconnects
// afterwards regardless of outcome.
func (s *SessionManager) WithSession(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Disconnect()
	return fn(ctx)
}

// Search runs a paginated search, connecting first when needed.
//
// The result count is capped client-side: req.SizeLimit when positive,
// the configured max_results otherwise. The page size is the configured
// page_size bounded by that cap. A page is truncated the moment the cap
// is reached and no further page is requested. The protocol-level size
// limit stays zero so truncation is owned entirely by this layer.
func (s *SessionManager) Search(ctx context.Context, req *SearchRequest) ([]*Entry, error) {
	s.mu.Lock()
	if err := s.connectLocked(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	c := s.conn
	s.mu.Unlock()

	effectiveLimit := s.cfg.Performance.MaxResults
	if req.SizeLimit > 0 {
		effectiveLimit = req.SizeLimit
	}
	pageSize := s.cfg.Performance.PageSize
	if pageSize > effectiveLimit {
		pageSize = effectiveLimit
	}

	baseDN := req.BaseDN
	if baseDN == "" {
		baseDN = s.cfg.Connection.BaseDN
	}
	filter := req.Filter
	if filter == "" {
		filter = "(objectClass=*)"
	}

	paging := ldap.NewControlPaging(uint32(pageSize))
	entries := make([]*Entry, 0, pageSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, WrapError("search", err)
		}

		searchReq := ldap.NewSearchRequest(
			baseDN,
			int(req.Scope),
			int(req.DerefAliases),
			0, // result cap enforced client-side
			0,
			false,
			filter,
			req.Attributes,
			[]ldap.Control{paging},
		)

		result, err := c.Search(searchReq)
		if err != nil {
			lerr := NewLDAPError("search", err)
			if lerr.DN == "" {
				lerr.DN = baseDN
			}
			return nil, lerr
		}

		for _, raw := range result.Entries {
			entries = append(entries, newEntry(raw))
			if len(entries) >= effectiveLimit {
				s.log.Debug("search truncated at result cap", map[string]any{
					"base_dn": baseDN,
					"limit":   effectiveLimit,
				})
				return entries, nil
			}
		}

		ctrl := ldap.FindControl(result.Controls, ldap.ControlTypePaging)
		if ctrl == nil {
			break
		}
		pagingResult, ok := ctrl.(*ldap.ControlPaging)
		if !ok || len(pagingResult.Cookie) == 0 {
			break
		}
		paging.SetCookie(pagingResult.Cookie)
	}

	return entries, nil
}

// ServerInfo is the connection diagnostic returned by Check.
type ServerInfo struct {
	Server         string   `json:"server"`
	AuthMethod     string   `json:"authMethod"`
	BaseDN         string   `json:"baseDN"`
	Connected      bool     `json:"connected"`
	BaseReachable  bool     `json:"baseReachable"`
	VendorName     string   `json:"vendorName,omitempty"`
	VendorVersion  string   `json:"vendorVersion,omitempty"`
	NamingContexts []string `json:"namingContexts,omitempty"`
}

// Check connects and reports server diagnostics: root DSE metadata when
// the server exposes it, and whether the configured base DN resolves.
func (s *SessionManager) Check(ctx context.Context) (*ServerInfo, error) {
	info := &ServerInfo{
		Server:     s.cfg.Connection.Server,
		AuthMethod: s.cfg.Connection.AuthMethod,
		BaseDN:     s.cfg.Connection.BaseDN,
	}

	if err := s.Connect(ctx); err != nil {
		return info, err
	}
	info.Connected = true

	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return info, nil
	}

	rootReq := ldap.NewSearchRequest("", ldap.ScopeBaseObject, ldap.NeverDerefAliases,
		0, 0, false, "(objectClass=*)", []string{"namingContexts", "vendorName", "vendorVersion"}, nil)
	if result, err := c.Search(rootReq); err == nil && len(result.Entries) > 0 {
		root := newEntry(result.Entries[0])
		info.VendorName = root.GetString("vendorName")
		info.VendorVersion = root.GetString("vendorVersion")
		info.NamingContexts = root.GetStrings("namingContexts")
	}

	baseReq := ldap.NewSearchRequest(s.cfg.Connection.BaseDN, ldap.ScopeBaseObject, ldap.NeverDerefAliases,
		1, 0, false, "(objectClass=*)", []string{"objectClass"}, nil)
	if result, err := c.Search(baseReq); err == nil && len(result.Entries) > 0 {
		info.BaseReachable = true
	}

	return info, nil
}

// dialServer opens the transport described by the connection config.
func (s *SessionManager) dialServer(ctx context.Context) (conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	connCfg := &s.cfg.Connection

	tlsCfg, err := s.tlsConfig()
	if err != nil {
		return nil, err
	}

	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: connCfg.ConnectTimeout()}),
	}
	if tlsCfg != nil {
		opts = append(opts, ldap.DialWithTLSConfig(tlsCfg))
	}

	c, err := ldap.DialURL(connCfg.Server, opts...)
	if err != nil {
		return nil, NewLDAPError("connect", err)
	}
	c.SetTimeout(connCfg.ResponseTimeout())

	if s.cfg.Security.EnableTLS && !strings.HasPrefix(connCfg.Server, "ldaps://") {
		if err := c.StartTLS(tlsCfg); err != nil {
			c.Close()
			return nil, NewLDAPError("starttls", err)
		}
	}

	return c, nil
}

// tlsConfig builds the TLS settings shared by ldaps dials and StartTLS.
// Nil means the library defaults are fine.
func (s *SessionManager) tlsConfig() (*tls.Config, error) {
	sec := &s.cfg.Security
	if !sec.EnableTLS && !sec.InsecureSkipVerify && sec.CACertFile == "" {
		return nil, nil
	}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: sec.InsecureSkipVerify,
	}

	if sec.CACertFile != "" {
		pem, err := os.ReadFile(sec.CACertFile)
		if err != nil {
			return nil, NewConfigurationError("connect", fmt.Sprintf("reading CA certificate %s: %v", sec.CACertFile, err))
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, NewConfigurationError("connect", fmt.Sprintf("no certificates found in %s", sec.CACertFile))
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}
