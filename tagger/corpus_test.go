package tagger

import (
	"errors"
	"strings"
	"testing"
)

func TestReadCorpus(t *testing.T) {
	text := "the/D dog/N barks\n\nthe/D cat/N sleeps/V\n"
	c, err := ReadCorpus(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadCorpus() error = %v", err)
	}
	if len(c.Sentences) != 2 {
		t.Fatalf("sentences = %d, want 2", len(c.Sentences))
	}

	first := c.Sentences[0]
	if len(first) != 3 {
		t.Fatalf("first sentence length = %d, want 3", len(first))
	}
	if first[0].Word != "the" || first[0].Tag != "D" || !first[0].HasTag {
		t.Errorf("token 0 = %+v, want the/D", first[0])
	}
	if first[2].Word != "barks" || first[2].HasTag {
		t.Errorf("token 2 = %+v, want bare word barks", first[2])
	}

	// Vocabularies end with OOV (words only) and the two sentinels.
	if !c.Tagset.hasSentinels(EOSTag, BOSTag) {
		t.Error("tag set does not end with the sentinels")
	}
	if !c.Vocab.hasSentinels(EOSWord, BOSWord) {
		t.Error("vocabulary does not end with the sentinels")
	}
	if got := c.Vocab.StringOf(c.Vocab.Size() - 3); got != OOVWord {
		t.Errorf("vocab entry before sentinels = %q, want OOV", got)
	}
}

func TestParseTokenLastSlash(t *testing.T) {
	tok, err := parseToken("3/4/FRAC")
	if err != nil {
		t.Fatalf("parseToken() error = %v", err)
	}
	if tok.Word != "3/4" || tok.Tag != "FRAC" {
		t.Errorf("parseToken(3/4/FRAC) = %+v, want word 3/4 tag FRAC", tok)
	}
}

func TestParseTokenMalformed(t *testing.T) {
	for _, field := range []string{"/N", "word/"} {
		if _, err := parseToken(field); err == nil {
			t.Errorf("parseToken(%q): error = nil, want malformed-token error", field)
		}
	}
}

func TestReadCorpusIntoUnknownTag(t *testing.T) {
	base, err := ReadCorpus(strings.NewReader("the/D dog/N"))
	if err != nil {
		t.Fatalf("ReadCorpus() error = %v", err)
	}
	_, err = ReadCorpusInto(strings.NewReader("the/QQQ"), base.Tagset, base.Vocab)
	if !errors.Is(err, ErrCorpusMismatch) {
		t.Errorf("ReadCorpusInto() with unknown tag: error = %v, want ErrCorpusMismatch", err)
	}
}

func TestReadCorpusIntoUnknownWordUsesOOV(t *testing.T) {
	base, err := ReadCorpus(strings.NewReader("the/D dog/N"))
	if err != nil {
		t.Fatalf("ReadCorpus() error = %v", err)
	}
	held, err := ReadCorpusInto(strings.NewReader("the zyzzyva"), base.Tagset, base.Vocab)
	if err != nil {
		t.Fatalf("ReadCorpusInto() error = %v", err)
	}

	m, err := New(base.Tagset, base.Vocab, nil, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	isent, err := m.IntegerizeSentence(held.Sentences[0], held)
	if err != nil {
		t.Fatalf("IntegerizeSentence() error = %v", err)
	}
	oov, _ := base.Vocab.IndexOf(OOVWord)
	if got := isent[2].Word; got != oov {
		t.Errorf("unknown word index = %d, want OOV index %d", got, oov)
	}
}

func TestReadCorpusIntoRequiresSentinels(t *testing.T) {
	tagset := NewVocab([]string{"D"})
	vocab := NewVocab([]string{"the"})
	_, err := ReadCorpusInto(strings.NewReader("the/D"), tagset, vocab)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("ReadCorpusInto() without sentinels: error = %v, want ErrConfig", err)
	}
}

func TestSentenceString(t *testing.T) {
	s := Sentence{
		{Word: "the", Tag: "D", HasTag: true},
		{Word: "dog"},
	}
	if got, want := s.String(), "the/D dog"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
