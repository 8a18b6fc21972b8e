package tagger

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Token is one word of a sentence, optionally carrying a gold tag.
type Token struct {
	Word   string
	Tag    string
	HasTag bool
}

// Sentence is an ordered sequence of tokens, without boundary sentinels.
type Sentence []Token

// IndexedToken is an integerized token. Tag is -1 when the tag is
// unobserved and must be marginalized over.
type IndexedToken struct {
	Word int
	Tag  int
}

// IndexedSentence is an integerized sentence with the bos sentinel
// prepended and the eos sentinel appended.
type IndexedSentence []IndexedToken

// Corpus is a finite, restartable collection of sentences sharing one tag
// set and one word vocabulary.
type Corpus struct {
	Sentences []Sentence
	Tagset    *Vocab
	Vocab     *Vocab
}

// ReadCorpus parses a training corpus from r, building a fresh tag set and
// vocabulary from the symbols it encounters. The format is one sentence per
// line, space-separated tokens, each either "word/tag" or a bare "word"
// (tag unknown). The tag separator is the last slash in the token, so words
// may themselves contain slashes. The returned vocabularies end with the
// out-of-vocabulary word (vocabulary only) followed by the two sentinels,
// as the model requires.
func ReadCorpus(r io.Reader) (*Corpus, error) {
	tagset := NewVocab(nil)
	vocab := NewVocab(nil)

	sentences, err := readSentences(r, tagset, vocab, true)
	if err != nil {
		return nil, err
	}

	vocab.Add(OOVWord)
	vocab.Add(EOSWord)
	vocab.Add(BOSWord)
	tagset.Add(EOSTag)
	tagset.Add(BOSTag)

	return &Corpus{Sentences: sentences, Tagset: tagset, Vocab: vocab}, nil
}

// ReadCorpusInto parses a corpus from r against an existing tag set and
// vocabulary, typically a trained model's own. Unknown words map onto the
// out-of-vocabulary entry when the vocabulary has one and are rejected
// otherwise; unknown tags are always rejected.
func ReadCorpusInto(r io.Reader, tagset, vocab *Vocab) (*Corpus, error) {
	if !tagset.hasSentinels(EOSTag, BOSTag) || !vocab.hasSentinels(EOSWord, BOSWord) {
		return nil, fmt.Errorf("%w: tag set and vocabulary must end with the eos and bos sentinels", ErrConfig)
	}
	sentences, err := readSentences(r, tagset, vocab, false)
	if err != nil {
		return nil, err
	}
	return &Corpus{Sentences: sentences, Tagset: tagset, Vocab: vocab}, nil
}

func readSentences(r io.Reader, tagset, vocab *Vocab, grow bool) ([]Sentence, error) {
	var sentences []Sentence
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var sent Sentence
		for _, field := range strings.Fields(line) {
			tok, err := parseToken(field)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if grow {
				vocab.Add(tok.Word)
				if tok.HasTag {
					tagset.Add(tok.Tag)
				}
			} else {
				if _, ok := vocab.IndexOf(tok.Word); !ok {
					if _, hasOOV := vocab.IndexOf(OOVWord); !hasOOV {
						return nil, fmt.Errorf("%w: line %d: unknown word %q and vocabulary has no OOV entry",
							ErrCorpusMismatch, lineNo, tok.Word)
					}
				}
				if tok.HasTag {
					if _, ok := tagset.IndexOf(tok.Tag); !ok {
						return nil, fmt.Errorf("%w: line %d: unknown tag %q", ErrCorpusMismatch, lineNo, tok.Tag)
					}
				}
			}
			sent = append(sent, tok)
		}
		if len(sent) > 0 {
			sentences = append(sentences, sent)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sentences, nil
}

func parseToken(field string) (Token, error) {
	if i := strings.LastIndexByte(field, '/'); i >= 0 {
		word, tag := field[:i], field[i+1:]
		if word == "" || tag == "" {
			return Token{}, fmt.Errorf("malformed token %q", field)
		}
		return Token{Word: word, Tag: tag, HasTag: true}, nil
	}
	return Token{Word: field}, nil
}

// String renders the sentence back into the corpus line format.
func (s Sentence) String() string {
	var b strings.Builder
	for i, tok := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Word)
		if tok.HasTag {
			b.WriteByte('/')
			b.WriteString(tok.Tag)
		}
	}
	return b.String()
}
