package modelstore

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ieee0824/tagger-go/tagger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "models.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func newTestModel(t *testing.T, unigram bool) *tagger.Model {
	t.Helper()
	c, err := tagger.ReadCorpus(strings.NewReader("the/D dog/N barks/V\na cat sleeps\n"))
	if err != nil {
		t.Fatalf("ReadCorpus() error = %v", err)
	}
	m, err := tagger.New(c.Tagset, c.Vocab, rand.New(rand.NewSource(9)), unigram)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newTestModel(t, false)

	meta := TrainingMeta{Epochs: 12, Lambda: 0.5, DevLoss: 3.25}
	if err := s.Put(ctx, "baseline", m, meta); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, info, err := s.Get(ctx, "baseline")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if info.Name != "baseline" || info.Unigram || info.Tags != m.K || info.Words != m.V {
		t.Errorf("info = %+v", info)
	}
	if info.Meta != meta {
		t.Errorf("meta = %+v, want %+v", info.Meta, meta)
	}
	if info.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
	if got.K != m.K || got.V != m.V || got.Unigram != m.Unigram {
		t.Fatalf("loaded shape = (%d, %d, %v), want (%d, %d, %v)",
			got.K, got.V, got.Unigram, m.K, m.V, m.Unigram)
	}
	for i := range m.A {
		for j := range m.A[i] {
			if got.A[i][j] != m.A[i][j] {
				t.Errorf("A[%d][%d] = %g, want %g", i, j, got.A[i][j], m.A[i][j])
			}
		}
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() on a stored model: %v", err)
	}
}

func TestPutReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "m", newTestModel(t, false), TrainingMeta{Epochs: 1}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "m", newTestModel(t, true), TrainingMeta{Epochs: 2}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, info, err := s.Get(ctx, "m")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Unigram || info.Meta.Epochs != 2 {
		t.Errorf("replacement did not take: unigram=%v epochs=%d", got.Unigram, info.Meta.Epochs)
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("List() returned %d entries after an upsert, want 1", len(infos))
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on a missing name: error = %v, want ErrNotFound", err)
	}
}

func TestListOrdersByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newTestModel(t, false)

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := s.Put(ctx, name, m, TrainingMeta{}); err != nil {
			t.Fatalf("Put(%q) error = %v", name, err)
		}
	}
	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"alpha", "bravo", "charlie"}
	if len(infos) != len(want) {
		t.Fatalf("List() returned %d entries, want %d", len(infos), len(want))
	}
	for i, name := range want {
		if infos[i].Name != name {
			t.Errorf("List()[%d].Name = %q, want %q", i, infos[i].Name, name)
		}
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "m", newTestModel(t, false), TrainingMeta{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(ctx, "m"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, _, err := s.Get(ctx, "m"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete(): error = %v, want ErrNotFound", err)
	}
	// Deleting a missing model is a no-op.
	if err := s.Delete(ctx, "m"); err != nil {
		t.Errorf("Delete() of a missing model: error = %v", err)
	}
}
