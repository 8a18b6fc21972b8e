package modelstore

import "database/sql"

// setupSchema creates the model table if it does not exist yet.
func setupSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS tagger_models (
		name       TEXT PRIMARY KEY,
		unigram    INTEGER NOT NULL,
		tags       INTEGER NOT NULL,
		words      INTEGER NOT NULL,
		epochs     INTEGER NOT NULL,
		lambda     REAL NOT NULL,
		dev_loss   REAL NOT NULL,
		snapshot   BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`)
	return err
}
