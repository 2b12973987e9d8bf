// Package config defines the configuration descriptors for the directory
// layer: connection parameters, deployment schema hints, logging and
// performance tuning. Descriptors are fully resolved at load time —
// defaults applied, presets merged, validation run — so consumers never
// probe for optional settings at runtime.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// Authentication methods accepted by the ldap section.
const (
	AuthAnonymous = "anonymous"
	AuthSimple    = "simple"
	AuthSASL      = "sasl"
)

// ConnectionConfig describes the LDAP server and how to bind to it.
type ConnectionConfig struct {
	Server         string `mapstructure:"server" json:"server"`
	BaseDN         string `mapstructure:"base_dn" json:"base_dn"`
	AuthMethod     string `mapstructure:"auth_method" json:"auth_method" default:"anonymous"`
	BindDN         string `mapstructure:"bind_dn" json:"bind_dn,omitempty"`
	Password       string `mapstructure:"password" json:"password,omitempty"`
	Timeout        int    `mapstructure:"timeout" json:"timeout" default:"30"`
	ReceiveTimeout int    `mapstructure:"receive_timeout" json:"receive_timeout" default:"10"`
	UseSSL         bool   `mapstructure:"use_ssl" json:"use_ssl"`
}

// ConnectTimeout returns the dial and bind timeout.
func (c *ConnectionConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ResponseTimeout returns the per-operation receive timeout.
func (c *ConnectionConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ReceiveTimeout) * time.Second
}

// SecurityConfig controls transport security beyond the URL scheme.
type SecurityConfig struct {
	EnableTLS          bool   `mapstructure:"enable_tls" json:"enable_tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"`
	CACertFile         string `mapstructure:"ca_cert_file" json:"ca_cert_file,omitempty"`
}

// SchemaConfig captures the deployment-specific directory conventions:
// object classes, search containers and the attribute sets worth
// retrieving beyond the standard person attributes.
type SchemaConfig struct {
	PersonObjectClass string `mapstructure:"person_object_class" json:"person_object_class" default:"person"`
	GroupObjectClass  string `mapstructure:"group_object_class" json:"group_object_class" default:"groupOfNames"`

	// Search containers. Empty values trigger container probing with a
	// fallback to the base DN.
	PersonSearchBase string `mapstructure:"person_search_base" json:"person_search_base,omitempty"`
	GroupSearchBase  string `mapstructure:"group_search_base" json:"group_search_base,omitempty"`

	// CorporateAttributes extends the retrieved attribute set with
	// standard corporate schema attributes; ExtensionAttributes names
	// vendor extension attributes preserved on normalized people.
	CorporateAttributes []string `mapstructure:"corporate_attributes" json:"corporate_attributes,omitempty"`
	ExtensionAttributes []string `mapstructure:"extension_attributes" json:"extension_attributes,omitempty"`
}

// SetDefaults fills the attribute lists; scalar defaults come from tags.
func (s *SchemaConfig) SetDefaults() {
	if len(s.CorporateAttributes) == 0 {
		s.CorporateAttributes = []string{"departmentNumber", "employeeNumber", "employeeType"}
	}
}

// LoggingConfig controls the stderr log output and the optional log file.
type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level" default:"info"`
	File  string `mapstructure:"file" json:"file,omitempty"`
}

// PerformanceConfig tunes retries, paging and result caps.
type PerformanceConfig struct {
	MaxRetries int     `mapstructure:"max_retries" json:"max_retries" default:"3"`
	RetryDelay float64 `mapstructure:"retry_delay" json:"retry_delay" default:"1"`
	PageSize   int     `mapstructure:"page_size" json:"page_size" default:"1000"`
	MaxResults int     `mapstructure:"max_results" json:"max_results" default:"5000"`
}

// RetryDelayDuration returns the delay between connection attempts.
func (p *PerformanceConfig) RetryDelayDuration() time.Duration {
	return time.Duration(p.RetryDelay * float64(time.Second))
}

// Config is the root configuration document.
type Config struct {
	Connection  ConnectionConfig  `mapstructure:"ldap" json:"ldap"`
	Security    SecurityConfig    `mapstructure:"security" json:"security"`
	Schema      SchemaConfig      `mapstructure:"schema" json:"schema"`
	Logging     LoggingConfig     `mapstructure:"logging" json:"logging"`
	Performance PerformanceConfig `mapstructure:"performance" json:"performance"`
}

// New returns a Config with all defaults applied.
func New() *Config {
	cfg := &Config{}
	defaults.MustSet(cfg)
	return cfg
}

// Validate reports hard configuration errors. All problems are collected
// into a single error so a broken file surfaces everything at once.
func (c *Config) Validate() error {
	var problems []string

	conn := &c.Connection
	switch {
	case conn.Server == "":
		problems = append(problems, "ldap.server is required")
	case !strings.HasPrefix(conn.Server, "ldap://") && !strings.HasPrefix(conn.Server, "ldaps://"):
		problems = append(problems, fmt.Sprintf("ldap.server must use the ldap:// or ldaps:// scheme, got %q", conn.Server))
	}
	if conn.BaseDN == "" {
		problems = append(problems, "ldap.base_dn is required")
	}
	switch conn.AuthMethod {
	case AuthAnonymous, AuthSASL:
	case AuthSimple:
		if conn.BindDN == "" || conn.Password == "" {
			problems = append(problems, "simple authentication requires ldap.bind_dn and ldap.password")
		}
	default:
		problems = append(problems, fmt.Sprintf("ldap.auth_method must be one of anonymous, simple or sasl, got %q", conn.AuthMethod))
	}
	if conn.Timeout < 1 {
		problems = append(problems, "ldap.timeout must be at least 1 second")
	}
	if conn.ReceiveTimeout < 1 {
		problems = append(problems, "ldap.receive_timeout must be at least 1 second")
	}

	perf := &c.Performance
	if perf.MaxRetries < 1 {
		problems = append(problems, "performance.max_retries must be at least 1")
	}
	if perf.RetryDelay < 0 {
		problems = append(problems, "performance.retry_delay must not be negative")
	}
	if perf.PageSize < 1 {
		problems = append(problems, "performance.page_size must be at least 1")
	}
	if perf.MaxResults < 1 {
		problems = append(problems, "performance.max_results must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Warnings reports soft findings that do not prevent operation.
func (c *Config) Warnings() []string {
	var warnings []string

	conn := &c.Connection
	if conn.AuthMethod == AuthAnonymous && (conn.BindDN != "" || conn.Password != "") {
		warnings = append(warnings, "bind credentials are ignored with anonymous authentication")
	}
	if conn.UseSSL && strings.HasPrefix(conn.Server, "ldap://") {
		warnings = append(warnings, "ldap.use_ssl is set but ldap.server uses the plain ldap:// scheme; the URL scheme wins")
	}

	base := strings.ToLower(conn.BaseDN)
	if sb := c.Schema.PersonSearchBase; sb != "" && base != "" && !strings.HasSuffix(strings.ToLower(sb), base) {
		warnings = append(warnings, fmt.Sprintf("schema.person_search_base %q is not under ldap.base_dn %q", sb, conn.BaseDN))
	}
	if sb := c.Schema.GroupSearchBase; sb != "" && base != "" && !strings.HasSuffix(strings.ToLower(sb), base) {
		warnings = append(warnings, fmt.Sprintf("schema.group_search_base %q is not under ldap.base_dn %q", sb, conn.BaseDN))
	}

	switch c.Schema.PersonObjectClass {
	case "person", "inetOrgPerson", "organizationalPerson", "user":
	default:
		if len(c.Schema.ExtensionAttributes) == 0 {
			warnings = append(warnings, fmt.Sprintf("schema.person_object_class %q looks like a vendor extension but schema.extension_attributes is empty", c.Schema.PersonObjectClass))
		}
	}

	return warnings
}

// Summary returns the non-secret settings worth logging at startup.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"server":              c.Connection.Server,
		"base_dn":             c.Connection.BaseDN,
		"auth_method":         c.Connection.AuthMethod,
		"person_object_class": c.Schema.PersonObjectClass,
		"person_search_base":  c.Schema.PersonSearchBase,
		"group_search_base":   c.Schema.GroupSearchBase,
		"log_level":           c.Logging.Level,
	}
}
