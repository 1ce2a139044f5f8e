package ldapclient

// Package ldapclient wraps the LDAP operations the workload issues: a lookup
// (service) connection for DN resolution as well as per-user bind and search
// operations over a pool of reusable connections.

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"

	"github.com/croessner/ldapsampler/internal/config"
)

var (
	// ErrUserNotFound is returned by LookupDN when the search has no result.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoConnection is returned when no user connection could be dialed.
	ErrNoConnection = errors.New("no connection available")
)

// Client exposes the minimal operations required by the runner.
type Client interface {
	BindLookup() error
	LookupDN(username string) (string, error)
	UserBind(dn, password string) error
	UserSearch(dn, password, filter string) (int, error) // returns entry count
	Close()
}

// EscapeFilter escapes a value for inclusion in an LDAP filter.
func EscapeFilter(s string) string { return ldap.EscapeFilter(s) }

// UserFilter injects the escaped username into tmpl when it contains a %s
// placeholder; otherwise tmpl is returned unchanged.
func UserFilter(tmpl, username string) string {
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}

	return fmt.Sprintf(tmpl, ldap.EscapeFilter(username))
}

type client struct {
	cfg *config.Config

	mu   sync.Mutex
	conn *ldap.Conn // shared lookup connection

	pool *connPool
}

// New creates a new client and establishes the lookup connection. User
// connections are dialed on demand and pooled up to concurrency*connections.
func New(cfg *config.Config) (Client, error) {
	c := &client{cfg: cfg, pool: newConnPool(cfg.Concurrency * cfg.Connections)}

	l, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.LDAPURL, err)
	}

	c.conn = l

	return c, nil
}

// dial connects according to the URL scheme. ldaps:// uses TLS from the
// start, StartTLS only applies to plain ldap://, and ldapi:// has neither.
func (c *client) dial() (*ldap.Conn, error) {
	var opts []ldap.DialOpt
	if strings.HasPrefix(c.cfg.LDAPURL, "ldaps://") {
		opts = append(opts, ldap.DialWithTLSConfig(c.cfg.TLSConfig()))
	}

	l, err := ldap.DialURL(c.cfg.LDAPURL, opts...)
	if err != nil {
		return nil, err
	}

	if c.cfg.StartTLS && strings.HasPrefix(c.cfg.LDAPURL, "ldap://") {
		if err := l.StartTLS(c.cfg.TLSConfig()); err != nil {
			l.Close()

			return nil, fmt.Errorf("starttls: %w", err)
		}
	}

	l.SetTimeout(c.cfg.Timeout)

	return l, nil
}

func (c *client) lookupConn() *ldap.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn
}

// BindLookup authenticates the lookup connection, via SASL/EXTERNAL when
// configured and with the service account otherwise.
func (c *client) BindLookup() error {
	l := c.lookupConn()
	if l == nil {
		return ErrNoConnection
	}

	if c.cfg.SaslExternal && c.cfg.LookupBindDN == "" {
		return l.ExternalBind()
	}

	return l.Bind(c.cfg.LookupBindDN, c.cfg.LookupBindPass)
}

func (c *client) searchRequest(filter string, sizeLimit int) *ldap.SearchRequest {
	return ldap.NewSearchRequest(
		c.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, sizeLimit, int(c.cfg.Timeout.Seconds()), false,
		filter,
		[]string{"dn"},
		nil,
	)
}

// LookupDN finds a user's DN using the configured UID attribute.
func (c *client) LookupDN(username string) (string, error) {
	l := c.lookupConn()
	if l == nil {
		return "", ErrNoConnection
	}

	filter := fmt.Sprintf("(&(%s=%s)(objectClass=person))", c.cfg.UIDAttr, ldap.EscapeFilter(username))

	res, err := l.Search(c.searchRequest(filter, 1))
	if err != nil {
		return "", err
	}

	if len(res.Entries) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	return res.Entries[0].DN, nil
}

// userAuth authenticates a pooled connection as the user.
func (c *client) userAuth(l *ldap.Conn, dn, password string) error {
	if c.cfg.SaslExternal {
		return l.ExternalBind()
	}

	return l.Bind(dn, password)
}

// UserBind rebinds a pooled connection as the user.
func (c *client) UserBind(dn, password string) error {
	l, err := c.pool.get(c.dial)
	if err != nil {
		return err
	}

	err = l.Bind(dn, password)
	c.pool.put(l, err)

	return err
}

// UserSearch authenticates as the user and executes a search; returns the
// number of entries.
func (c *client) UserSearch(dn, password, filter string) (int, error) {
	l, err := c.pool.get(c.dial)
	if err != nil {
		return 0, err
	}

	if err := c.userAuth(l, dn, password); err != nil {
		c.pool.put(l, err)

		return 0, err
	}

	res, err := l.Search(c.searchRequest(filter, 0))
	c.pool.put(l, err)
	if err != nil {
		return 0, err
	}

	return len(res.Entries), nil
}

// Close closes the lookup connection and every pooled connection.
func (c *client) Close() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.pool.close()
}
