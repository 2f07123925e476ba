package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/config"
)

// SetupTestDB connects to the test database and installs the schema. Tests
// calling it are skipped unless STRATEGY_SEARCH_TEST_DB is set, since they
// need a running Postgres configured by config.yaml.test.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	if os.Getenv("STRATEGY_SEARCH_TEST_DB") == "" {
		t.Skip("STRATEGY_SEARCH_TEST_DB not set")
	}

	cfg, err := config.Load("../../config/config.yaml.test")
	if err != nil {
		t.Fatalf("loading test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		t.Fatalf("installing search schema: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}
