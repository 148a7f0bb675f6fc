package store

const schema = `
CREATE TABLE IF NOT EXISTS examples (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    repository TEXT NOT NULL,
    revision TEXT NOT NULL,
    script TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    example_id TEXT NOT NULL,
    image TEXT NOT NULL,
    revision TEXT,
    status TEXT NOT NULL,
    exit_code INTEGER,
    message TEXT,
    image_count INTEGER,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    FOREIGN KEY (example_id) REFERENCES examples(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_example ON runs(example_id);
CREATE INDEX IF NOT EXISTS idx_runs_example_image ON runs(example_id, image, finished_at);
`
