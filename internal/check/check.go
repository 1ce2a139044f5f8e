package check

// Package check provides a lightweight connectivity/config verification that can
// be executed via --check to validate CLI parameters, CSV, and LDAP access
// without starting workers or samplers.

import (
	"fmt"
	"io"
	"time"

	"github.com/croessner/ldapsampler/internal/config"
	"github.com/croessner/ldapsampler/internal/csvdata"
	"github.com/croessner/ldapsampler/internal/ldapclient"
)

// newClient is a small indirection to allow tests to inject a fake LDAP client
// without changing the public API. In production it points to ldapclient.New.
var newClient = ldapclient.New

// since is replaced in tests to get stable output.
var since = time.Since

type step struct {
	w io.Writer
}

// run executes fn and reports it as OK together with its duration.
func (s step) run(name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return err
	}

	fmt.Fprintf(s.w, "OK: %s (%s)\n", name, since(start).Round(time.Microsecond))

	return nil
}

// Run performs a short verification sequence, printing one line per step to
// w, and returns precise errors.
func Run(cfg *config.Config, w io.Writer) error {
	s := step{w: w}

	var users *csvdata.Users
	if err := s.run(fmt.Sprintf("CSV '%s' loaded", cfg.CSVPath), func() error {
		var err error
		users, err = csvdata.Load(cfg.CSVPath)

		return err
	}); err != nil {
		return fmt.Errorf("csv error: %w", err)
	}

	fmt.Fprintf(w, "OK: %d users\n", users.Len())

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("ldap client error: %w", err)
	}

	defer client.Close()

	if err := s.run("Lookup bind", client.BindLookup); err != nil {
		return fmt.Errorf("lookup bind failed: %w", err)
	}

	u := users.All[0]

	var dn string
	if err := s.run(fmt.Sprintf("DN for user '%s' found", u.Username), func() error {
		var err error
		dn, err = client.LookupDN(u.Username)

		return err
	}); err != nil {
		return fmt.Errorf("lookup dn failed for user '%s': %w", u.Username, err)
	}

	fmt.Fprintf(w, "OK: DN is %s\n", dn)

	if cfg.Mode == config.ModeAuth || cfg.Mode == config.ModeBoth {
		if err := s.run(fmt.Sprintf("User bind for '%s'", u.Username), func() error {
			return client.UserBind(dn, u.Password)
		}); err != nil {
			return fmt.Errorf("user bind failed for '%s': %w", u.Username, err)
		}
	}

	if cfg.Mode == config.ModeSearch || cfg.Mode == config.ModeBoth {
		filter := ldapclient.UserFilter(cfg.Filter, u.Username)
		if err := s.run(fmt.Sprintf("Search with filter '%s'", filter), func() error {
			_, err := client.UserSearch(dn, u.Password, filter)

			return err
		}); err != nil {
			return fmt.Errorf("user search failed for '%s' with filter '%s': %w", u.Username, filter, err)
		}
	}

	fmt.Fprintf(w, "OK: sampler window %d observations per %s (%.0f obs/s per operation)\n",
		cfg.WindowCapacity, cfg.SampleInterval, cfg.ObservationBudget())

	return nil
}
