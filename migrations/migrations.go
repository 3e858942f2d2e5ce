// Package migrations holds the embedded SQL schema migrations for the
// PostgreSQL node store.
package migrations

import (
	"embed"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var files embed.FS

// Source returns a golang-migrate source driver backed by the embedded
// migration files, so deployments do not depend on a migrations directory
// existing on disk.
func Source() (source.Driver, error) {
	return iofs.New(files, ".")
}
