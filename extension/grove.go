package extension

import (
	"fmt"
	"strings"

	"github.com/xraph/grove"

	"github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/mongo"
	"github.com/xraph/auditledger/store/postgres"
	"github.com/xraph/auditledger/store/sqlite"
)

// groveStore builds the store backend for a grove database.
func groveStore(db *grove.DB, driver, key string) (store.Store, error) {
	switch strings.ToLower(driver) {
	case "postgres", "pg":
		return postgres.New(db, key), nil
	case "sqlite", "sqlite3":
		return sqlite.New(db, key), nil
	case "mongo", "mongodb":
		return mongo.New(db, key), nil
	default:
		return nil, fmt.Errorf("auditledger: unknown grove driver %q", driver)
	}
}
