package tagger

import (
	"fmt"

	"github.com/ieee0824/tagger-go/internal/mathutil"
)

// ViterbiTag returns the single most probable tagging of the sentence
// under the current parameters. Positions that already carry a tag are
// held fixed; only the unobserved positions are decoded. Runs in O(nK^2)
// time and O(nK) space.
//
// Ties between equally scored predecessors break toward the
// lowest-numbered tag (the first maximum seen), which keeps decoding
// deterministic.
func (m *Model) ViterbiTag(s Sentence, c *Corpus) (Sentence, error) {
	isent, err := m.IntegerizeSentence(s, c)
	if err != nil {
		return nil, err
	}
	n := len(isent) - 2

	delta := mathutil.NewMatFill(n+2, m.K, mathutil.LogZero)
	bp := make([][]int32, n+2)
	for t := range bp {
		bp[t] = make([]int32, m.K)
		for j := range bp[t] {
			bp[t][j] = -1
		}
	}
	delta[0][m.bosT] = 0

	for t := 1; t <= n+1; t++ {
		tok := isent[t]
		for _, j := range m.permittedTags(tok) {
			emit := m.logB[j][tok.Word]
			if emit <= mathutil.LogZero+1 {
				continue
			}
			best := mathutil.LogZero
			bestI := int32(-1)
			for _, i := range m.permittedTags(isent[t-1]) {
				prev := delta[t-1][i]
				if prev <= mathutil.LogZero+1 {
					continue
				}
				la := m.logA[i][j]
				if la <= mathutil.LogZero+1 {
					continue
				}
				if score := prev + la; score > best {
					best = score
					bestI = int32(i)
				}
			}
			if bestI < 0 {
				continue
			}
			delta[t][j] = best + emit
			bp[t][j] = bestI
		}
	}

	if bp[n+1][m.eosT] < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoPath, s.String())
	}

	// Follow backpointers from eos back to bos, then emit in order.
	tags := make([]int, n)
	cur := int32(m.eosT)
	for t := n + 1; t >= 1; t-- {
		prev := bp[t][cur]
		if prev < 0 {
			return nil, fmt.Errorf("%w: broken backpointer chain at position %d", ErrInternal, t)
		}
		if t <= n {
			tags[t-1] = int(cur)
		}
		cur = prev
	}
	if cur != int32(m.bosT) {
		return nil, fmt.Errorf("%w: backpointer chain does not end at bos", ErrInternal)
	}

	out := make(Sentence, len(s))
	for i, tok := range s {
		out[i] = Token{Word: tok.Word, Tag: m.Tagset.StringOf(tags[i]), HasTag: true}
	}
	return out, nil
}
