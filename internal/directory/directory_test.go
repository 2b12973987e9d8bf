package directory

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/isometry/corpdir/internal/config"
	"github.com/isometry/corpdir/internal/ldap"
)

// mockSearcher implements Searcher for resolver tests.
type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, req *ldap.SearchRequest) ([]*ldap.Entry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ldap.Entry), args.Error(1)
}

// onSearch registers an expectation matched by a predicate over the
// search request.
func (m *mockSearcher) onSearch(match func(req *ldap.SearchRequest) bool) *mock.Call {
	return m.On("Search", mock.Anything, mock.MatchedBy(match))
}

func filterContains(substr string) func(req *ldap.SearchRequest) bool {
	return func(req *ldap.SearchRequest) bool {
		return strings.Contains(req.Filter, substr)
	}
}

func baseEquals(baseDN string) func(req *ldap.SearchRequest) bool {
	return func(req *ldap.SearchRequest) bool {
		return req.BaseDN == baseDN
	}
}

// capturedLog is one record emitted through capturingLogger.
type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

// capturingLogger records log calls for assertions.
type capturingLogger struct {
	entries []capturedLog
}

func (l *capturingLogger) record(level, msg string, fields map[string]any) {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	l.entries = append(l.entries, capturedLog{level: level, msg: msg, fields: copied})
}

func (l *capturingLogger) Debug(msg string, fields map[string]any) { l.record("debug", msg, fields) }
func (l *capturingLogger) Info(msg string, fields map[string]any)  { l.record("info", msg, fields) }
func (l *capturingLogger) Warn(msg string, fields map[string]any)  { l.record("warn", msg, fields) }
func (l *capturingLogger) Error(msg string, fields map[string]any) { l.record("error", msg, fields) }

func (l *capturingLogger) hasMessage(level, msg string) bool {
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

const (
	testBaseDN   = "dc=example,dc=com"
	testPeopleDN = "ou=users,dc=example,dc=com"
	testGroupsDN = "ou=groups,dc=example,dc=com"
)

// testDirectoryConfig pins the search bases so resolver tests skip
// container probing. Probing has dedicated tests.
func testDirectoryConfig() *config.Config {
	cfg := config.New()
	cfg.Connection.Server = "ldap://ldap.example.com:389"
	cfg.Connection.BaseDN = testBaseDN
	cfg.Schema.PersonSearchBase = testPeopleDN
	cfg.Schema.GroupSearchBase = testGroupsDN
	cfg.Schema.ExtensionAttributes = []string{
		"rhatJobTitle",
		"rhatCostCenter",
		"rhatCostCenterDesc",
		"rhatLocation",
		"rhatPersonType",
		"rhatWorkerId",
	}
	return cfg
}

func personDN(uid string) string {
	return fmt.Sprintf("uid=%s,%s", uid, testPeopleDN)
}

// personEntry builds a person fixture with uid and cn set, merged with
// any extra attributes.
func personEntry(uid string, extra map[string][]string) *ldap.Entry {
	attrs := map[string][]string{
		"uid": {uid},
		"cn":  {uid},
	}
	for name, values := range extra {
		attrs[name] = values
	}
	return ldap.NewEntry(personDN(uid), attrs)
}

func groupEntry(cn string, extra map[string][]string) *ldap.Entry {
	attrs := map[string][]string{"cn": {cn}}
	for name, values := range extra {
		attrs[name] = values
	}
	return ldap.NewEntry(fmt.Sprintf("cn=%s,%s", cn, testGroupsDN), attrs)
}

func notFoundErr(operation string) error {
	return &ldap.LDAPError{
		Operation: operation,
		Category:  ldap.ErrorCategoryNotFound,
		Message:   "no such object",
	}
}

func serverErr(operation string) error {
	return &ldap.LDAPError{
		Operation: operation,
		Category:  ldap.ErrorCategoryServer,
		Message:   "server unavailable",
		Retryable: true,
	}
}

func TestNewWiresResolvers(t *testing.T) {
	searcher := &mockSearcher{}
	dir := New(searcher, testDirectoryConfig(), nil)

	assert.NotNil(t, dir.People)
	assert.NotNil(t, dir.Org)
	assert.NotNil(t, dir.Groups)
	assert.NotNil(t, dir.Locations)
}
