package persist

import (
	"net/url"
	"slices"
)

// ConnectionProvider supplies the details needed to reach a database: the
// registered database/sql driver name, the DSN, and optional credentials.
// Implementations are pure configuration; the executor treats a missing
// driver or DSN as a fatal configuration error.
type ConnectionProvider interface {
	Driver() string
	URL() string
	Username() string
	Password() string
}

// Static is a ConnectionProvider backed by plain values. Useful for tests
// and for embedding the executor without the config layer.
type Static struct {
	DriverName string
	DSN        string
	User       string
	Pass       string
}

func (s Static) Driver() string   { return s.DriverName }
func (s Static) URL() string      { return s.DSN }
func (s Static) Username() string { return s.User }
func (s Static) Password() string { return s.Pass }

// composeDSN merges the provider's credentials into its DSN. For URL-shaped
// DSNs (postgres://...) the userinfo section is filled in unless already
// present; path-shaped DSNs (SQLite files) pass through untouched.
func composeDSN(p ConnectionProvider) string {
	dsn := p.URL()
	if p.Username() == "" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return dsn
	}
	if u.User != nil && u.User.Username() != "" {
		return dsn
	}
	if p.Password() != "" {
		u.User = url.UserPassword(p.Username(), p.Password())
	} else {
		u.User = url.User(p.Username())
	}
	return u.String()
}

// validateProvider checks the required provider fields against the list of
// drivers registered with database/sql.
func validateProvider(p ConnectionProvider, registered []string) error {
	if p == nil {
		return newError("the connection provider has not been initialized")
	}
	if p.Driver() == "" {
		return newError("the driver name has not been initialized")
	}
	if p.URL() == "" {
		return newError("the database URL has not been initialized")
	}
	if !slices.Contains(registered, p.Driver()) {
		return newErrorf("sql driver %q is not registered", p.Driver())
	}
	return nil
}
