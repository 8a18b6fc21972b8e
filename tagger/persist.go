package tagger

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
)

// serializable snapshot for gob encoding. Only the distributions and the
// symbol tables are persisted; training accumulators are transient.
type serializedModel struct {
	Tags    []string
	Words   []string
	Unigram bool
	A       [][]float64
	B       [][]float64
}

// WriteSnapshot serializes the model to a writer using gob encoding.
func (m *Model) WriteSnapshot(w io.Writer) error {
	sm := serializedModel{
		Tags:    m.Tagset.Strings(),
		Words:   m.Vocab.Strings(),
		Unigram: m.Unigram,
		A:       m.A,
		B:       m.B,
	}
	return gob.NewEncoder(w).Encode(sm)
}

// ReadSnapshot deserializes a model from a reader, rebuilding the symbol
// tables and re-validating the sentinel layout and structural zeros.
func ReadSnapshot(r io.Reader) (*Model, error) {
	var sm serializedModel
	if err := gob.NewDecoder(r).Decode(&sm); err != nil {
		return nil, err
	}

	tagset := NewVocab(sm.Tags)
	vocab := NewVocab(sm.Words)
	m, err := New(tagset, vocab, nil, sm.Unigram)
	if err != nil {
		return nil, err
	}
	if len(sm.A) != m.K || len(sm.B) != m.K {
		return nil, fmt.Errorf("%w: snapshot matrices do not match its symbol tables", ErrConfig)
	}
	for i := 0; i < m.K; i++ {
		if len(sm.A[i]) != m.K || len(sm.B[i]) != m.V {
			return nil, fmt.Errorf("%w: snapshot matrices do not match its symbol tables", ErrConfig)
		}
		copy(m.A[i], sm.A[i])
		copy(m.B[i], sm.B[i])
	}
	m.refreshLog()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes a snapshot of the model to path. The write is atomic: the
// snapshot is staged in full and renamed into place, so a crash can never
// leave a truncated model on disk.
func (m *Model) Save(path string) error {
	var buf bytes.Buffer
	if err := m.WriteSnapshot(&buf); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing model to %s: %w", path, err)
	}
	m.logger.Info("model saved", "path", path)
	return nil
}

// Load reads a model snapshot from path.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("reading model from %s: %w", path, err)
	}
	return m, nil
}
