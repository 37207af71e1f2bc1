// Package ldap reads directory entries and maps them onto portal records.
package ldap

import (
	"fmt"
	"strings"
	"time"
)

const defaultPageSize = 500

// Config holds LDAP connection and import settings for one server.
type Config struct {
	ServerID int64 `json:"server_id" mapstructure:"server_id"`

	// Connection settings
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
	UseSSL  bool   `json:"use_ssl" mapstructure:"use_ssl"`
	UseTLS  bool   `json:"use_tls" mapstructure:"use_tls"`
	SkipTLS bool   `json:"skip_tls_verify" mapstructure:"skip_tls_verify"`
	Timeout int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// Bind settings
	BindDN       string `json:"bind_dn" mapstructure:"bind_dn"`
	BindPassword string `json:"-" mapstructure:"bind_password"`

	// Search settings
	BaseDN            string   `json:"base_dn" mapstructure:"base_dn"`
	UserBaseDN        string   `json:"user_base_dn" mapstructure:"user_base_dn"`
	UserImportFilter  string   `json:"user_import_filter" mapstructure:"user_import_filter"`
	GroupBaseDN       string   `json:"group_base_dn" mapstructure:"group_base_dn"`
	GroupImportFilter string   `json:"group_import_filter" mapstructure:"group_import_filter"`
	PageSize          uint32   `json:"page_size" mapstructure:"page_size"`
	BinaryAttributes  []string `json:"binary_attributes" mapstructure:"binary_attributes"`

	// Active Directory specific
	IsActiveDirectory bool `json:"is_active_directory" mapstructure:"is_active_directory"`
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) pageSize() uint32 {
	if c.PageSize == 0 {
		return defaultPageSize
	}
	return c.PageSize
}

// DefaultConfigs provides common directory flavours.
var DefaultConfigs = map[string]*Config{
	"active_directory": {
		Port:              389,
		UseTLS:            true,
		UserImportFilter:  "(&(objectClass=user)(!(objectClass=computer)))",
		GroupImportFilter: "(objectClass=group)",
		BinaryAttributes:  []string{"thumbnailPhoto", "objectGUID", "objectSid"},
		IsActiveDirectory: true,
		Timeout:           30,
		PageSize:          defaultPageSize,
	},
	"openldap": {
		Port:              389,
		UseTLS:            true,
		UserImportFilter:  "(objectClass=inetOrgPerson)",
		GroupImportFilter: "(objectClass=groupOfNames)",
		BinaryAttributes:  []string{"jpegPhoto"},
		Timeout:           30,
		PageSize:          defaultPageSize,
	},
	"389ds": {
		Port:              389,
		UseTLS:            true,
		UserImportFilter:  "(objectClass=inetOrgPerson)",
		GroupImportFilter: "(objectClass=groupOfUniqueNames)",
		BinaryAttributes:  []string{"jpegPhoto"},
		Timeout:           30,
		PageSize:          defaultPageSize,
	},
}

// ValidateConfig validates LDAP configuration.
func ValidateConfig(config *Config) []string {
	var errors []string

	if config.Host == "" {
		errors = append(errors, "LDAP host is required")
	}

	if config.Port <= 0 || config.Port > 65535 {
		errors = append(errors, "LDAP port must be between 1 and 65535")
	}

	if config.BaseDN == "" {
		errors = append(errors, "Base DN is required")
	}

	if config.UserImportFilter != "" && !isFilter(config.UserImportFilter) {
		errors = append(errors, "User import filter must be enclosed in parentheses")
	}

	if config.GroupImportFilter != "" && !isFilter(config.GroupImportFilter) {
		errors = append(errors, "Group import filter must be enclosed in parentheses")
	}

	if config.UseSSL && config.UseTLS {
		errors = append(errors, "Cannot use both SSL and StartTLS")
	}

	if config.BindDN != "" && config.BindPassword == "" {
		errors = append(errors, "Bind password is required when bind DN is set")
	}

	return errors
}

func isFilter(f string) bool {
	f = strings.TrimSpace(f)
	return strings.HasPrefix(f, "(") && strings.HasSuffix(f, ")")
}

// GetConfigTemplate returns a configuration template for a specific LDAP type.
func GetConfigTemplate(ldapType string) (*Config, error) {
	template, exists := DefaultConfigs[ldapType]
	if !exists {
		return nil, fmt.Errorf("unknown LDAP type: %s", ldapType)
	}

	config := *template
	config.BinaryAttributes = append([]string(nil), template.BinaryAttributes...)
	return &config, nil
}
