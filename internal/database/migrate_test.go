package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ddlFor(t *testing.T, table string) string {
	t.Helper()
	for _, stmt := range schema {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			return stmt
		}
	}
	t.Fatalf("no DDL for table %s", table)
	return ""
}

// Deleting a user keeps their soft-invalidated movements for history,
// so the movements table must not reference users: a foreign key with
// the default RESTRICT action would make the user delete fail with
// error 1451 for anyone who ever recorded a movement.
func TestMovementsCarryNoUserForeignKey(t *testing.T) {
	ddl := ddlFor(t, "movements")
	assert.NotContains(t, ddl, "FOREIGN KEY")
	// The lookup index on user_id stays.
	assert.Contains(t, ddl, "KEY idx_movements_user_date (user_id, date)")
}

func TestSchemaIsIdempotent(t *testing.T) {
	require.NotEmpty(t, schema)
	for _, stmt := range schema {
		assert.Contains(t, stmt, "CREATE TABLE IF NOT EXISTS")
	}
}

// Admin configs ride along with their owner: the row is per-admin
// state with no history value, so it cascades on user deletion.
func TestAdminConfigsCascadeWithOwner(t *testing.T) {
	ddl := ddlFor(t, "admin_configs")
	assert.Contains(t, ddl, "ON DELETE CASCADE")
}
