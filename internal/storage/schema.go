package storage

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id              VARCHAR PRIMARY KEY,
    email           VARCHAR NOT NULL UNIQUE,
    username        VARCHAR NOT NULL UNIQUE,
    display_name    VARCHAR,
    bio             VARCHAR,
    location        VARCHAR,
    region          VARCHAR,
    website         VARCHAR,
    image           VARCHAR,
    is_public       BOOLEAN NOT NULL DEFAULT TRUE,
    password_hash   VARCHAR,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at      TIMESTAMP
);
`

const schemaSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    token           VARCHAR PRIMARY KEY,
    user_id         VARCHAR NOT NULL,
    expires_at      TIMESTAMP NOT NULL,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schemaSyncedMessageIDs = `
CREATE TABLE IF NOT EXISTS synced_message_ids (
    id              VARCHAR PRIMARY KEY,
    user_id         VARCHAR NOT NULL,
    source          VARCHAR NOT NULL,
    message_id      VARCHAR NOT NULL,
    synced_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, source, message_id)
);
`

const schemaUsageRecords = `
CREATE TABLE IF NOT EXISTS usage_records (
    id                  VARCHAR PRIMARY KEY,
    user_id             VARCHAR NOT NULL,
    date                DATE NOT NULL,
    source              VARCHAR NOT NULL,
    model               VARCHAR NOT NULL,
    machine_id          VARCHAR NOT NULL DEFAULT 'default',
    input_tokens        BIGINT NOT NULL DEFAULT 0,
    output_tokens       BIGINT NOT NULL DEFAULT 0,
    cache_read_tokens   BIGINT NOT NULL DEFAULT 0,
    cache_write_tokens  BIGINT NOT NULL DEFAULT 0,
    reasoning_tokens    BIGINT NOT NULL DEFAULT 0,
    cost                DECIMAL(12,4) NOT NULL DEFAULT 0,
    usage_timestamp     TIMESTAMP,
    synced_at           TIMESTAMP,
    created_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, date, source, model, machine_id)
);
`

const schemaStreaks = `
CREATE TABLE IF NOT EXISTS streaks (
    user_id             VARCHAR PRIMARY KEY,
    current_streak      INTEGER NOT NULL DEFAULT 0,
    longest_streak      INTEGER NOT NULL DEFAULT 0,
    last_active_date    DATE,
    timezone            VARCHAR NOT NULL DEFAULT 'UTC',
    updated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schemaLeaderboardCache = `
CREATE TABLE IF NOT EXISTS leaderboard_cache (
    id              VARCHAR PRIMARY KEY,
    user_id         VARCHAR NOT NULL,
    period          VARCHAR NOT NULL,
    "rank"          INTEGER NOT NULL,
    total_tokens    BIGINT NOT NULL DEFAULT 0,
    total_cost      DECIMAL(14,4) NOT NULL DEFAULT 0,
    streak_days     INTEGER NOT NULL DEFAULT 0,
    rank_change     INTEGER,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, period)
);
`

const schemaCommunityBenchmarks = `
CREATE TABLE IF NOT EXISTS community_benchmarks (
    period                  VARCHAR PRIMARY KEY,
    total_users             INTEGER NOT NULL DEFAULT 0,
    avg_tokens              BIGINT,
    median_tokens           BIGINT,
    total_community_tokens  BIGINT,
    avg_cost                DECIMAL(14,4),
    avg_streak              INTEGER,
    avg_unique_tools        INTEGER,
    avg_cache_efficiency    DOUBLE,
    updated_at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const indexSyncedMessageIDs = `
CREATE INDEX IF NOT EXISTS idx_synced_message_ids_synced_at ON synced_message_ids(synced_at);
`

const indexUsageRecords = `
CREATE INDEX IF NOT EXISTS idx_usage_records_user_date ON usage_records(user_id, date);
CREATE INDEX IF NOT EXISTS idx_usage_records_date ON usage_records(date);
`

const indexSessions = `
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`
