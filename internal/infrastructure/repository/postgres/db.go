// Package postgres holds the relational adapters: the catalog reads the
// scorers rank over and the decision-provenance writes the async writer
// flushes.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the catalog and provenance tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	provider TEXT NOT NULL,
	languages JSONB NOT NULL DEFAULT '[]'::jsonb,
	supports_json BOOLEAN NOT NULL DEFAULT FALSE,
	vision BOOLEAN NOT NULL DEFAULT FALSE,
	price_per_1k DOUBLE PRECISION NOT NULL DEFAULT 0,
	regions JSONB NOT NULL DEFAULT '[]'::jsonb,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_templates (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	business_module TEXT NOT NULL,
	variables JSONB NOT NULL DEFAULT '[]'::jsonb,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prompt_templates_module ON prompt_templates(business_module);

CREATE TABLE IF NOT EXISTS personas (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	summary TEXT,
	product_id TEXT,
	product_name TEXT,
	category TEXT,
	subcategory TEXT,
	region TEXT,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_personas_product_id ON personas(product_id);

CREATE TABLE IF NOT EXISTS scripts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	summary TEXT,
	product_id TEXT,
	product_name TEXT,
	category TEXT,
	subcategory TEXT,
	channel TEXT,
	duration_sec INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scripts_product_id ON scripts(product_id);

CREATE TABLE IF NOT EXISTS styles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	channel TEXT,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	subcategory TEXT,
	region TEXT
);

CREATE TABLE IF NOT EXISTS candidate_sets (
	id TEXT PRIMARY KEY,
	subject_type TEXT NOT NULL,
	subject_id TEXT,
	subject_snapshot JSONB,
	target_type TEXT NOT NULL,
	context_snapshot JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidate_sets_created_at ON candidate_sets(created_at DESC);

CREATE TABLE IF NOT EXISTS candidates (
	id BIGSERIAL PRIMARY KEY,
	candidate_set_id TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	coarse_score DOUBLE PRECISION,
	fine_score DOUBLE PRECISION,
	reason JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_set_id ON candidates(candidate_set_id);

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	candidate_set_id TEXT NOT NULL,
	chosen_target_type TEXT NOT NULL,
	chosen_target_id TEXT NOT NULL,
	strategy_version TEXT NOT NULL,
	weights_snapshot JSONB,
	top_k INTEGER NOT NULL DEFAULT 0,
	explore_flags JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_set_id ON decisions(candidate_set_id);

CREATE TABLE IF NOT EXISTS outcomes (
	decision_id TEXT PRIMARY KEY,
	quality_score DOUBLE PRECISION,
	conversion BOOLEAN,
	latency_ms INTEGER,
	cost_actual DOUBLE PRECISION,
	notes TEXT,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// placeholders renders ($1,$2),($3,$4),... for a multi-row insert.
func placeholders(rows, cols int) string {
	var b strings.Builder
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}
