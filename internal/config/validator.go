package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

type SecretValidator struct {
	config   *Config
	errors   []string
	warnings []string
}

func NewSecretValidator(cfg *Config) *SecretValidator {
	return &SecretValidator{
		config:   cfg,
		errors:   []string{},
		warnings: []string{},
	}
}

// Validate fails in production when a secret is missing, weak or still the
// sample value. Outside production every finding is a warning.
func (v *SecretValidator) Validate() error {
	isProduction := v.config.App.IsProduction()

	v.validateJWTSecret(isProduction)
	v.validateDatabasePassword(isProduction)
	v.validateLDAPPassword(isProduction)
	v.validateLDAPTransport(isProduction)
	v.validateDefaultPassword(isProduction)

	if len(v.errors) > 0 {
		return fmt.Errorf("secret validation failed:\n%s", strings.Join(v.errors, "\n"))
	}

	for _, w := range v.warnings {
		log.Warn().Msg(strings.TrimSpace(w))
	}
	return nil
}

func (v *SecretValidator) Warnings() []string {
	return v.warnings
}

func (v *SecretValidator) validateJWTSecret(isProduction bool) {
	secret := v.config.API.JWTSecret

	if secret == "" {
		v.addError("api.jwt_secret is not set", isProduction)
		return
	}

	if secret == "CHANGE_THIS_SECRET_KEY_BEFORE_USE" {
		v.addError("api.jwt_secret is using the default example value", isProduction)
		return
	}

	if !isProduction && (strings.HasPrefix(secret, "dev-") || strings.HasPrefix(secret, "test-")) {
		return
	}

	if len(secret) < 32 {
		v.addError("api.jwt_secret must be at least 32 characters long", isProduction)
	}
}

func (v *SecretValidator) validateDatabasePassword(isProduction bool) {
	db := v.config.Database
	if db.Driver == "sqlite3" || db.DSN != "" {
		return
	}

	if db.Password == "" {
		v.addWarning("database.password is not set")
		return
	}

	if db.Password == "gotrs_password" {
		v.addError("database.password is using the default example value", isProduction)
		return
	}

	if len(db.Password) < 12 {
		v.addWarning("database.password should be at least 12 characters long")
	}
}

func (v *SecretValidator) validateLDAPPassword(isProduction bool) {
	switch v.config.LDAP.BindPassword {
	case "readonly123", "admin123", "secret":
		v.addError("ldap.bind_password is using a default example value", isProduction)
	}
}

// Simple binds send the password as is.
func (v *SecretValidator) validateLDAPTransport(isProduction bool) {
	l := v.config.LDAP
	if l.BindPassword != "" && !l.UseSSL && !l.UseTLS {
		v.addError("ldap.bind_password is sent in clear text; enable ldap.use_ssl or ldap.use_tls", isProduction)
	}
	if l.SkipTLS && (l.UseSSL || l.UseTLS) {
		v.addError("ldap.skip_tls_verify disables certificate verification", isProduction)
	}
}

func (v *SecretValidator) validateDefaultPassword(isProduction bool) {
	imp := v.config.Import
	if imp.ImportPasswordEnabled || strings.EqualFold(imp.DefaultPassword, "screenName") {
		return
	}
	if len(imp.DefaultPassword) < 8 {
		v.addError("import.default_password should be at least 8 characters long", isProduction)
	}
}

func (v *SecretValidator) addError(message string, isProduction bool) {
	if isProduction {
		v.errors = append(v.errors, "   "+message)
	} else {
		v.warnings = append(v.warnings, "   "+message)
	}
}

func (v *SecretValidator) addWarning(message string) {
	v.warnings = append(v.warnings, "   "+message)
}

func ValidateSecrets(cfg *Config) error {
	return NewSecretValidator(cfg).Validate()
}
