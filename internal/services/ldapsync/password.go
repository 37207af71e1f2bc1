package ldapsync

import "strings"

// ScreenNamePassword is the reserved default password meaning "use the
// user's screen name". It is matched case-insensitively.
const ScreenNamePassword = "screenName"

// PasswordPolicy decides which password an import writes.
type PasswordPolicy struct {
	ImportEnabled   bool
	DefaultPassword string
}

// Resolve returns the directory password when password import is enabled,
// otherwise the configured default.
// The engine calls it after screen name generation, so the screenName token
// resolves to the generated name.
func (p PasswordPolicy) Resolve(password, screenName string) string {
	if p.ImportEnabled {
		return password
	}
	if strings.EqualFold(p.DefaultPassword, ScreenNamePassword) {
		return screenName
	}
	return p.DefaultPassword
}

func (s Settings) passwordPolicy() PasswordPolicy {
	return PasswordPolicy{ImportEnabled: s.ImportPasswordEnabled, DefaultPassword: s.DefaultPassword}
}
