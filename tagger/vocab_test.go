package tagger

import "testing"

func TestVocabAddAndLookup(t *testing.T) {
	v := NewVocab(nil)
	if v.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", v.Size())
	}
	a := v.Add("alpha")
	b := v.Add("beta")
	if a != 0 || b != 1 {
		t.Errorf("Add() indices = %d, %d, want 0, 1", a, b)
	}
	if got := v.Add("alpha"); got != a {
		t.Errorf("re-Add(alpha) = %d, want %d", got, a)
	}
	if v.Size() != 2 {
		t.Errorf("Size() = %d, want 2", v.Size())
	}
	if i, ok := v.IndexOf("beta"); !ok || i != 1 {
		t.Errorf("IndexOf(beta) = %d, %v, want 1, true", i, ok)
	}
	if _, ok := v.IndexOf("gamma"); ok {
		t.Error("IndexOf(gamma) found a missing symbol")
	}
	if got := v.StringOf(0); got != "alpha" {
		t.Errorf("StringOf(0) = %q, want %q", got, "alpha")
	}
}

func TestVocabInitialOrder(t *testing.T) {
	v := NewVocab([]string{"x", "y", "x", "z"})
	want := []string{"x", "y", "z"}
	got := v.Strings()
	if len(got) != len(want) {
		t.Fatalf("Strings() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Strings()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestVocabStringsIsACopy(t *testing.T) {
	v := NewVocab([]string{"x"})
	s := v.Strings()
	s[0] = "mutated"
	if v.StringOf(0) != "x" {
		t.Error("Strings() shares storage with the vocabulary")
	}
}

func TestVocabSentinels(t *testing.T) {
	v := NewVocab([]string{"w", EOSWord, BOSWord})
	if !v.hasSentinels(EOSWord, BOSWord) {
		t.Error("hasSentinels() = false for a well-formed vocabulary")
	}
	bad := NewVocab([]string{EOSWord, BOSWord, "w"})
	if bad.hasSentinels(EOSWord, BOSWord) {
		t.Error("hasSentinels() = true when the sentinels are not final")
	}
}
