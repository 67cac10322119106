package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/till/store"
	"github.com/xraph/till/store/postgres"
	"github.com/xraph/till/store/storetest"
)

// TILL_PG_DSN points at a disposable database; its till tables are
// truncated before every subtest.
const dsnEnv = "TILL_PG_DSN"

func openStore(t *testing.T, dsn string) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	drv := pgdriver.New()
	require.NoError(t, drv.Open(ctx, dsn))
	db, err := grove.Open(drv)
	require.NoError(t, err)

	s := postgres.New(db)
	require.NoError(t, s.Migrate(ctx))
	_, err = drv.Exec(ctx, `TRUNCATE till_sales, till_products, till_events RESTART IDENTITY`)
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		return openStore(t, dsn)
	})
}
