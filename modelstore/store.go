// Package modelstore keeps trained tagger models in a SQLite database,
// mapping model names to parameter snapshots plus training metadata. It is
// a convenience layer over tagger's snapshot encoding for workflows that
// manage several models side by side (different smoothing, unigram vs
// bigram, retraining runs).
package modelstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ieee0824/tagger-go/tagger"
)

// ErrNotFound is returned when no model with the requested name exists.
var ErrNotFound = errors.New("modelstore: model not found")

// TrainingMeta describes how a stored model was produced.
type TrainingMeta struct {
	Epochs  int
	Lambda  float64
	DevLoss float64
}

// ModelInfo is the stored metadata for one model.
type ModelInfo struct {
	Name      string
	Unigram   bool
	Tags      int
	Words     int
	Meta      TrainingMeta
	CreatedAt time.Time
}

// Store is a registry of model snapshots backed by a SQLite database.
// All statements are prepared once at construction.
type Store struct {
	db         *sql.DB
	stmtUpsert *sql.Stmt
	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtDelete *sql.Stmt
}

// Open opens (creating if necessary) the model database at path and
// prepares all statements. The SQLite driver is selected at build time:
// the pure-Go driver by default, the cgo driver under the cgo_sqlite tag.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := setupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting up schema: %w", err)
	}

	s := &Store{db: db}
	s.stmtUpsert, err = db.Prepare(`INSERT INTO tagger_models
		(name, unigram, tags, words, epochs, lambda, dev_loss, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			unigram = excluded.unigram, tags = excluded.tags, words = excluded.words,
			epochs = excluded.epochs, lambda = excluded.lambda, dev_loss = excluded.dev_loss,
			snapshot = excluded.snapshot, created_at = excluded.created_at;`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.stmtGet, err = db.Prepare(`SELECT unigram, tags, words, epochs, lambda, dev_loss, snapshot, created_at
		FROM tagger_models WHERE name = ?;`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.stmtList, err = db.Prepare(`SELECT name, unigram, tags, words, epochs, lambda, dev_loss, created_at
		FROM tagger_models ORDER BY name;`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.stmtDelete, err = db.Prepare(`DELETE FROM tagger_models WHERE name = ?;`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the prepared statements and the database handle.
func (s *Store) Close() error {
	_ = s.stmtUpsert.Close()
	_ = s.stmtGet.Close()
	_ = s.stmtList.Close()
	_ = s.stmtDelete.Close()
	return s.db.Close()
}

// Put stores (or replaces) a model snapshot under the given name.
func (s *Store) Put(ctx context.Context, name string, m *tagger.Model, meta TrainingMeta) error {
	var buf bytes.Buffer
	if err := m.WriteSnapshot(&buf); err != nil {
		return fmt.Errorf("encoding model %q: %w", name, err)
	}
	_, err := s.stmtUpsert.ExecContext(ctx, name, m.Unigram, m.K, m.V,
		meta.Epochs, meta.Lambda, meta.DevLoss, buf.Bytes(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing model %q: %w", name, err)
	}
	return nil
}

// Get loads the named model and its metadata.
func (s *Store) Get(ctx context.Context, name string) (*tagger.Model, ModelInfo, error) {
	info := ModelInfo{Name: name}
	var snapshot []byte
	err := s.stmtGet.QueryRowContext(ctx, name).Scan(
		&info.Unigram, &info.Tags, &info.Words,
		&info.Meta.Epochs, &info.Meta.Lambda, &info.Meta.DevLoss,
		&snapshot, &info.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ModelInfo{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, ModelInfo{}, err
	}
	m, err := tagger.ReadSnapshot(bytes.NewReader(snapshot))
	if err != nil {
		return nil, ModelInfo{}, fmt.Errorf("decoding model %q: %w", name, err)
	}
	return m, info, nil
}

// List returns metadata for every stored model, ordered by name.
func (s *Store) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []ModelInfo
	for rows.Next() {
		var info ModelInfo
		if err := rows.Scan(&info.Name, &info.Unigram, &info.Tags, &info.Words,
			&info.Meta.Epochs, &info.Meta.Lambda, &info.Meta.DevLoss, &info.CreatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the named model. Deleting a missing model is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.stmtDelete.ExecContext(ctx, name)
	return err
}
