package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Provider reads user and group entries from one directory server.
type Provider struct {
	config *Config
	conn   *ldap.Conn
}

// NewProvider creates a new LDAP provider.
func NewProvider(config *Config) *Provider {
	return &Provider{
		config: config,
	}
}

// Config returns the provider configuration.
func (p *Provider) Config() *Config {
	return p.config
}

// Connect establishes connection to LDAP server and binds with the service account.
func (p *Provider) Connect(ctx context.Context) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	p.conn = conn
	return nil
}

// URL returns the ldap:// or ldaps:// address the provider dials.
func (p *Provider) URL() string {
	scheme := "ldap"
	if p.config.UseSSL {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.config.Host, p.config.Port)
}

func (p *Provider) dial(ctx context.Context) (*ldap.Conn, error) {
	address := p.URL()

	dialer := &net.Dialer{Timeout: p.config.timeout()}
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if p.config.UseSSL {
		opts = append(opts, ldap.DialWithTLSConfig(p.tlsConfig()))
	}
	conn, err := ldap.DialURL(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	} else if p.config.Timeout > 0 {
		conn.SetTimeout(p.config.timeout())
	}

	if p.config.UseTLS && !p.config.UseSSL {
		if err = conn.StartTLS(p.tlsConfig()); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if p.config.BindDN != "" && p.config.BindPassword != "" {
		if err = conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	return conn, nil
}

// Close closes the LDAP connection.
func (p *Provider) Close() {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// SearchUsers pages through every entry matching the import user filter and
// hands each one to fn. Iteration stops at the first error fn returns.
func (p *Provider) SearchUsers(ctx context.Context, attributes []string, fn func(*Attributes) error) error {
	base := p.config.UserBaseDN
	if base == "" {
		base = p.config.BaseDN
	}
	return p.search(ctx, base, p.config.UserImportFilter, attributes, p.config.BinaryAttributes, fn)
}

// SearchGroups pages through every entry matching the import group filter.
func (p *Provider) SearchGroups(ctx context.Context, attributes []string, fn func(*Attributes) error) error {
	base := p.config.GroupBaseDN
	if base == "" {
		base = p.config.BaseDN
	}
	return p.search(ctx, base, p.config.GroupImportFilter, attributes, nil, fn)
}

func (p *Provider) search(ctx context.Context, baseDN, filter string, attributes, binary []string, fn func(*Attributes) error) error {
	if p.conn == nil {
		return fmt.Errorf("not connected")
	}
	if filter == "" {
		filter = "(objectClass=*)"
	}

	searchRequest := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // No size limit
		int(p.config.timeout()/time.Second),
		false,
		filter,
		attributes,
		nil,
	)

	result, err := p.conn.SearchWithPaging(searchRequest, p.config.pageSize())
	if err != nil {
		return fmt.Errorf("search %s failed: %w", baseDN, err)
	}

	for _, entry := range result.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(FromEntry(entry, binary...)); err != nil {
			return err
		}
	}
	return nil
}

// TestConnection tests LDAP connection and authentication on a connection of
// its own, so it can run next to a search.
func (p *Provider) TestConnection(ctx context.Context) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1,
		5, // 5 second timeout for test
		false,
		"(objectClass=*)",
		[]string{"1.1"}, // No attributes needed
		nil,
	)

	if _, err := conn.Search(searchRequest); err != nil {
		return fmt.Errorf("test search failed: %w", err)
	}
	return nil
}

func (p *Provider) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         p.config.Host,
		InsecureSkipVerify: p.config.SkipTLS, //nolint:gosec // opt-in for lab directories
	}
}
