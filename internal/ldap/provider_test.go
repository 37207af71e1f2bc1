package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_URL(t *testing.T) {
	t.Run("plain connection", func(t *testing.T) {
		cfg := &Config{Host: "ldap.example.com", Port: 389, BindDN: "cn=admin,dc=example,dc=com"}
		p := NewProvider(cfg)

		assert.Equal(t, "ldap://ldap.example.com:389", p.URL())
		require.Same(t, cfg, p.Config())
		assert.Equal(t, "cn=admin,dc=example,dc=com", p.Config().BindDN)
	})

	t.Run("ssl uses the ldaps scheme", func(t *testing.T) {
		p := NewProvider(&Config{Host: "ad.example.com", Port: 636, UseSSL: true})
		assert.Equal(t, "ldaps://ad.example.com:636", p.URL())
	})
}
