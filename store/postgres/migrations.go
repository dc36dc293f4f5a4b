package postgres

import "github.com/xraph/dyson/store/sqlstore"

// Migrations is the PostgreSQL schema for the Dyson store.
var Migrations = []sqlstore.Migration{
	{
		Name:    "create_dyson_counters",
		Version: "20260901000001",
		Up: `
CREATE TABLE IF NOT EXISTS dyson_counters (
    name  TEXT PRIMARY KEY,
    value BIGINT NOT NULL DEFAULT 0 CHECK (value >= 0)
);`,
	},
	{
		Name:    "create_dyson_construction",
		Version: "20260901000002",
		Up: `
CREATE TABLE IF NOT EXISTS dyson_phases (
    id           BIGINT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    requirements JSONB NOT NULL DEFAULT '[]',
    status       TEXT NOT NULL,
    created_at   BIGINT NOT NULL DEFAULT 0,
    updated_at   BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_dyson_phases_status ON dyson_phases (status, id);

CREATE TABLE IF NOT EXISTS dyson_resources (
    resource   TEXT PRIMARY KEY,
    allocated  BIGINT NOT NULL DEFAULT 0,
    used       BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL DEFAULT 0,
    updated_at BIGINT NOT NULL DEFAULT 0,
    CHECK (used >= 0 AND used <= allocated)
);`,
	},
	{
		Name:    "create_dyson_investments",
		Version: "20260901000003",
		Up: `
CREATE TABLE IF NOT EXISTS dyson_investments (
    investor   TEXT PRIMARY KEY,
    amount     BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0),
    created_at BIGINT NOT NULL DEFAULT 0,
    updated_at BIGINT NOT NULL DEFAULT 0
);`,
	},
	{
		Name:    "create_dyson_governance",
		Version: "20260901000004",
		Up: `
CREATE TABLE IF NOT EXISTS dyson_proposals (
    id            BIGINT PRIMARY KEY,
    title         TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    proposer      TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'active',
    votes_for     BIGINT NOT NULL DEFAULT 0,
    votes_against BIGINT NOT NULL DEFAULT 0,
    created_at    BIGINT NOT NULL DEFAULT 0,
    updated_at    BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_dyson_proposals_status ON dyson_proposals (status, id);

CREATE TABLE IF NOT EXISTS dyson_votes (
    proposal_id BIGINT NOT NULL REFERENCES dyson_proposals (id),
    voter       TEXT NOT NULL,
    vote_for    SMALLINT NOT NULL,
    cast_at     BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (proposal_id, voter)
);`,
	},
	{
		Name:    "create_dyson_energy",
		Version: "20260901000005",
		Up: `
CREATE TABLE IF NOT EXISTS dyson_sectors (
    sector     TEXT PRIMARY KEY,
    allocated  BIGINT NOT NULL DEFAULT 0,
    used       BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL DEFAULT 0,
    updated_at BIGINT NOT NULL DEFAULT 0,
    CHECK (used >= 0 AND used <= allocated)
);`,
	},
	{
		Name:    "create_dyson_journal",
		Version: "20260901000006",
		Up: `
CREATE TABLE IF NOT EXISTS dyson_journal (
    id        TEXT PRIMARY KEY,
    seq       BIGINT NOT NULL UNIQUE,
    module    TEXT NOT NULL,
    operation TEXT NOT NULL,
    caller    TEXT NOT NULL,
    subject   TEXT NOT NULL DEFAULT '',
    amount    BIGINT NOT NULL DEFAULT 0,
    detail    TEXT NOT NULL DEFAULT '',
    at        BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dyson_journal_module ON dyson_journal (module, seq);
CREATE INDEX IF NOT EXISTS idx_dyson_journal_caller ON dyson_journal (caller, seq);`,
	},
}
