package tagger

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m, corpus := newIceCreamModel(t, "2 3 3\n1 1 2")

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.K != m.K || loaded.V != m.V || loaded.Unigram != m.Unigram {
		t.Fatalf("loaded shape = (%d, %d, %v), want (%d, %d, %v)",
			loaded.K, loaded.V, loaded.Unigram, m.K, m.V, m.Unigram)
	}
	for i, want := range m.Tagset.Strings() {
		if got := loaded.Tagset.StringOf(i); got != want {
			t.Errorf("tag %d = %q, want %q", i, got, want)
		}
	}
	for i, want := range m.Vocab.Strings() {
		if got := loaded.Vocab.StringOf(i); got != want {
			t.Errorf("word %d = %q, want %q", i, got, want)
		}
	}
	for i := range m.A {
		for j := range m.A[i] {
			if loaded.A[i][j] != m.A[i][j] {
				t.Errorf("A[%d][%d] = %g, want %g", i, j, loaded.A[i][j], m.A[i][j])
			}
		}
	}
	for i := range m.B {
		for j := range m.B[i] {
			if loaded.B[i][j] != m.B[i][j] {
				t.Errorf("B[%d][%d] = %g, want %g", i, j, loaded.B[i][j], m.B[i][j])
			}
		}
	}

	// The loaded model must score sentences identically. Its symbol tables
	// are fresh objects, so the text is re-read against them.
	loadedCorpus, err := ReadCorpusInto(strings.NewReader("2 3 3"), loaded.Tagset, loaded.Vocab)
	if err != nil {
		t.Fatalf("ReadCorpusInto() error = %v", err)
	}
	want, err := m.LogProb(corpus.Sentences[0], corpus)
	if err != nil {
		t.Fatalf("LogProb() error = %v", err)
	}
	got, err := loaded.LogProb(loadedCorpus.Sentences[0], loadedCorpus)
	if err != nil {
		t.Fatalf("loaded LogProb() error = %v", err)
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("loaded log probability = %g, want %g", got, want)
	}
}

func TestSnapshotRoundTripUnigram(t *testing.T) {
	m, _ := newRandomModel(t, true)

	var buf bytes.Buffer
	if err := m.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	loaded, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if !loaded.Unigram {
		t.Error("Unigram flag lost in round trip")
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Validate() after round trip: %v", err)
	}
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	if _, err := ReadSnapshot(strings.NewReader("not a gob stream")); err == nil {
		t.Error("ReadSnapshot() on garbage input: error = nil, want non-nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.gob")); err == nil {
		t.Error("Load() on a missing path: error = nil, want non-nil")
	}
}
