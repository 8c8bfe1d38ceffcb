package catalog

// schemaSQL creates all tables. Kept as one script so a fresh catalog is a
// single transaction away from usable.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS scan_cache (
    root        TEXT NOT NULL,
    signature   TEXT NOT NULL,
    payload_json TEXT NOT NULL,
    created_at  TEXT NOT NULL,
    PRIMARY KEY (root)
);

CREATE TABLE IF NOT EXISTS materials (
    root          TEXT NOT NULL,
    mesh_scope    TEXT NOT NULL,
    name          TEXT NOT NULL,
    channel_count INTEGER NOT NULL,
    low_confidence INTEGER NOT NULL DEFAULT 0,
    updated_at    TEXT NOT NULL,
    PRIMARY KEY (root, mesh_scope, name)
);

CREATE INDEX IF NOT EXISTS idx_materials_root ON materials(root);

CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    root          TEXT NOT NULL,
    started_at    TEXT NOT NULL,
    finished_at   TEXT NOT NULL,
    created_count INTEGER NOT NULL,
    skipped_count INTEGER NOT NULL,
    renamed_count INTEGER NOT NULL,
    warning_count INTEGER NOT NULL,
    error_count   INTEGER NOT NULL,
    report_json   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
`
