package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/slackmoji/slackmoji/slackmoji/database"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// setupTestDB opens a fresh in-memory database with the full schema. Each
// test gets its own database, named after the test so shared-cache
// connections land on the same store.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	// SQLite allows one writer at a time; a single connection keeps
	// concurrent tests from tripping over lock errors.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateTables(context.Background(), db))

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }
