package sqlite

import (
	"context"

	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the wallet store (SQLite).
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
    uid        TEXT NOT NULL DEFAULT '',
    owner_id   TEXT NOT NULL DEFAULT '',
    balance    TEXT NOT NULL DEFAULT '0',
    version    INTEGER NOT NULL DEFAULT 1,
    status     TEXT NOT NULL DEFAULT 'active',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_accounts_uid ON wallet_accounts (uid);
CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_accounts_owner ON wallet_accounts (owner_id);
CREATE INDEX IF NOT EXISTS idx_wallet_accounts_status ON wallet_accounts (status);
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
    wallet_id        TEXT NOT NULL DEFAULT '',
    user_id          TEXT NOT NULL DEFAULT '',
    credit_limit     TEXT NOT NULL DEFAULT '0',
    credit_available TEXT NOT NULL DEFAULT '0',
    credit_used      TEXT NOT NULL DEFAULT '0',
    version          INTEGER NOT NULL DEFAULT 1,
    is_active        INTEGER NOT NULL DEFAULT 1,
    joined_at        DATETIME NOT NULL DEFAULT (datetime('now')),
    left_at          DATETIME,
    created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
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
    business_id TEXT NOT NULL DEFAULT '',
    wallet_id   TEXT NOT NULL DEFAULT '',
    user_id     TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT 'recharge',
    amount      TEXT NOT NULL DEFAULT '0',
    status      TEXT NOT NULL DEFAULT 'pending',
    description TEXT NOT NULL DEFAULT '',
    settled_at  DATETIME,
    fail_reason TEXT NOT NULL DEFAULT '',
    credited    INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_txns_business ON wallet_transactions (business_id);
CREATE INDEX IF NOT EXISTS idx_wallet_txns_wallet_status ON wallet_transactions (wallet_id, status);
CREATE INDEX IF NOT EXISTS idx_wallet_txns_credited ON wallet_transactions (status, credited);
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
    wallet_id    TEXT NOT NULL DEFAULT '',
    name         TEXT NOT NULL DEFAULT '',
    digest       TEXT NOT NULL DEFAULT '',
    is_active    INTEGER NOT NULL DEFAULT 1,
    last_used_at DATETIME,
    revoked_at   DATETIME,
    created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
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
    wallet_id   TEXT NOT NULL DEFAULT '',
    member_id   TEXT NOT NULL DEFAULT '',
    user_id     TEXT NOT NULL DEFAULT '',
    resource    TEXT NOT NULL DEFAULT '',
    quantity    TEXT NOT NULL DEFAULT '0',
    rate        TEXT NOT NULL DEFAULT '0',
    amount      TEXT NOT NULL DEFAULT '0',
    occurred_at DATETIME NOT NULL DEFAULT (datetime('now')),
    created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_wallet_usage_wallet_time ON wallet_usage_records (wallet_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_wallet_usage_user_time ON wallet_usage_records (user_id, occurred_at);
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
