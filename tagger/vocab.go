package tagger

// Reserved symbols. The sequence-boundary sentinels must be the final two
// entries of both the tag set and the word vocabulary, end marker first.
// The out-of-vocabulary word is optional; when present, corpus reading with
// a fixed vocabulary maps unknown words onto it.
const (
	EOSTag = "_EOS_TAG_"
	BOSTag = "_BOS_TAG_"

	EOSWord = "_EOS_WORD_"
	BOSWord = "_BOS_WORD_"
	OOVWord = "_OOV_WORD_"
)

// Vocab is a bidirectional mapping between symbols (words or tags) and
// dense integer indices. Indices are assigned in insertion order and never
// change once assigned.
type Vocab struct {
	strs  []string
	index map[string]int
}

// NewVocab creates a vocabulary containing the given symbols in order.
// Duplicates keep their first index.
func NewVocab(initial []string) *Vocab {
	v := &Vocab{index: make(map[string]int, len(initial))}
	for _, s := range initial {
		v.Add(s)
	}
	return v
}

// Size returns the number of distinct symbols.
func (v *Vocab) Size() int { return len(v.strs) }

// Add returns the index of s, adding it to the vocabulary if absent.
func (v *Vocab) Add(s string) int {
	if i, ok := v.index[s]; ok {
		return i
	}
	i := len(v.strs)
	v.strs = append(v.strs, s)
	v.index[s] = i
	return i
}

// IndexOf looks up the index of s.
func (v *Vocab) IndexOf(s string) (int, bool) {
	i, ok := v.index[s]
	return i, ok
}

// StringOf returns the symbol at index i. i must be a valid index.
func (v *Vocab) StringOf(i int) string { return v.strs[i] }

// Strings returns a copy of all symbols in index order.
func (v *Vocab) Strings() []string {
	out := make([]string, len(v.strs))
	copy(out, v.strs)
	return out
}

// hasSentinels reports whether the final two entries are eos then bos.
func (v *Vocab) hasSentinels(eos, bos string) bool {
	n := v.Size()
	return n >= 2 && v.strs[n-2] == eos && v.strs[n-1] == bos
}
