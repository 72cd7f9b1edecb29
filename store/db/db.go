// Package db dispatches to the concrete store driver.
package db

import (
	"github.com/pkg/errors"

	"github.com/finbrief/finbrief/internal/profile"
	"github.com/finbrief/finbrief/store"
	"github.com/finbrief/finbrief/store/db/postgres"
	"github.com/finbrief/finbrief/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the production driver with full support including
// pgvector nearest-neighbor search. SQLite is for development and
// testing; it has no vector search, which makes semantic retrieval
// fall back to substring matching.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
