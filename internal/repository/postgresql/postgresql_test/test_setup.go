package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds a connection to a migrated test database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL, skipping the test when it is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn, database.PoolConfig{MaxConns: 4, MinConns: 1})
	require.NoError(t, err, "failed to connect to test database")

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(context.Background()))
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables removes all rows, children first.
func (s *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"advance_repayments",
		"advance_payments",
		"salary_adjustments",
		"salary_payments",
		"salary_configs",
		"attendance_records",
		"assignments",
		"nurses",
		"organizations",
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// CreateNurse inserts an organization and a nurse and returns their ids.
func (s *TestDatabaseSetup) CreateNurse(t *testing.T, ctx context.Context, orgCode, name string) (orgID, nurseID string) {
	t.Helper()

	err := s.DB.QueryRow(ctx, `
		INSERT INTO organizations (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, orgCode, orgCode+" Home Care").Scan(&orgID)
	require.NoError(t, err)

	err = s.DB.QueryRow(ctx, `
		INSERT INTO nurses (organization_id, full_name, registration_no)
		VALUES ($1, $2, $3)
		RETURNING id
	`, orgID, name, "REG-"+name).Scan(&nurseID)
	require.NoError(t, err)
	return orgID, nurseID
}

func (s *TestDatabaseSetup) Close() {
	s.DB.Close()
}
