package postgres

import (
	"context"

	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the wallet store (PostgreSQL).
var Migrations = migrate.NewGroup("wallet")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_wallet_accounts",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS wallet_accounts (
    id         TEXT PRIMARY KEY,
    uid        TEXT NOT NULL,
    owner_id   TEXT NOT NULL,
    balance    NUMERIC(20,6) NOT NULL DEFAULT 0,
    version    BIGINT NOT NULL DEFAULT 1,
    status     TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_accounts_uid ON wallet_accounts (uid);
CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_accounts_owner ON wallet_accounts (owner_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS wallet_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_wallet_members",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS wallet_members (
    id               TEXT PRIMARY KEY,
    wallet_id        TEXT NOT NULL,
    user_id          TEXT NOT NULL,
    credit_limit     NUMERIC(20,6) NOT NULL DEFAULT 0,
    credit_available NUMERIC(20,6) NOT NULL DEFAULT 0,
    credit_used      NUMERIC(20,6) NOT NULL DEFAULT 0,
    version          BIGINT NOT NULL DEFAULT 1,
    is_active        BOOLEAN NOT NULL DEFAULT TRUE,
    joined_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    left_at          TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_members_wallet_user ON wallet_members (wallet_id, user_id);
CREATE INDEX IF NOT EXISTS idx_wallet_members_wallet ON wallet_members (wallet_id, is_active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS wallet_members`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_wallet_transactions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS wallet_transactions (
    id          TEXT PRIMARY KEY,
    business_id TEXT NOT NULL,
    wallet_id   TEXT NOT NULL,
    user_id     TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT 'recharge',
    amount      NUMERIC(20,6) NOT NULL,
    status      TEXT NOT NULL DEFAULT 'pending',
    description TEXT NOT NULL DEFAULT '',
    fail_reason TEXT NOT NULL DEFAULT '',
    settled_at  TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_txns_business ON wallet_transactions (business_id);
CREATE INDEX IF NOT EXISTS idx_wallet_txns_wallet ON wallet_transactions (wallet_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS wallet_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_wallet_api_keys",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS wallet_api_keys (
    id           TEXT PRIMARY KEY,
    wallet_id    TEXT NOT NULL,
    name         TEXT NOT NULL DEFAULT '',
    digest       TEXT NOT NULL,
    is_active    BOOLEAN NOT NULL DEFAULT TRUE,
    last_used_at TIMESTAMPTZ,
    revoked_at   TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_api_keys_digest ON wallet_api_keys (digest);
CREATE INDEX IF NOT EXISTS idx_wallet_api_keys_wallet ON wallet_api_keys (wallet_id, is_active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS wallet_api_keys`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_wallet_usage_records",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS wallet_usage_records (
    id          TEXT PRIMARY KEY,
    wallet_id   TEXT NOT NULL,
    member_id   TEXT NOT NULL DEFAULT '',
    user_id     TEXT NOT NULL DEFAULT '',
    resource    TEXT NOT NULL DEFAULT '',
    quantity    NUMERIC(20,6) NOT NULL DEFAULT 0,
    rate        NUMERIC(20,6) NOT NULL DEFAULT 0,
    amount      NUMERIC(20,6) NOT NULL DEFAULT 0,
    occurred_at TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_wallet_usage_wallet_time ON wallet_usage_records (wallet_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_wallet_usage_user ON wallet_usage_records (user_id, occurred_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS wallet_usage_records`)
				return err
			},
		},
	)
}
