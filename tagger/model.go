// Package tagger implements a first-order (bigram) hidden Markov model
// part-of-speech tagger. Parameters are trained with Baum-Welch EM over
// tagged, untagged, or partially tagged sentences, and decoding uses the
// Viterbi algorithm. All dynamic programming runs in the log domain.
package tagger

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/ieee0824/tagger-go/internal/mathutil"
)

// Model is a bigram HMM over a fixed tag set and word vocabulary.
//
// A[i][j] is the probability of tag j following tag i; B[i][w] is the
// probability of tag i emitting word w. Both are linear-space
// distributions. Structural zeros: no transition may enter bos or leave
// eos, and the sentinel tags emit only their own sentinel words.
type Model struct {
	K int // number of tags, sentinels included
	V int // number of words, sentinels included

	// Unigram selects a zeroth-order fallback in which every non-boundary
	// row of A carries the same distribution, so tag positions are
	// generated independently rather than Markov-chained.
	Unigram bool

	Tagset *Vocab
	Vocab  *Vocab

	A mathutil.Mat // K x K transitions
	B mathutil.Mat // K x V emissions

	// Log views of A and B, refreshed at every parameter change. These are
	// derived data, never mutated by the forward-backward or Viterbi passes.
	logA mathutil.Mat
	logB mathutil.Mat

	bosT, eosT int // sentinel tag indices (last two entries of the tag set)
	bosW, eosW int // sentinel word indices (last two entries of the vocabulary)

	// realTags lists every non-sentinel tag index; singleTags[t] is the
	// one-element candidate set {t}. Both are read-only after construction
	// and shared by the DP passes.
	realTags   []int
	singleTags [][]int

	logger *slog.Logger
}

// Counts holds expected transition and emission counts accumulated during
// one EM epoch. The values are fractional (posterior-weighted) in the
// unsupervised case and hard counts where tags are observed.
type Counts struct {
	A mathutil.Mat // K x K
	B mathutil.Mat // K x V
}

// New constructs a model with randomly initialized parameters over the
// given tag set and vocabulary. Both must end with the eos and bos
// sentinel symbols, in that order. The random source makes initialization
// reproducible; a nil rng falls back to a fixed seed.
func New(tagset, vocab *Vocab, rng *rand.Rand, unigram bool) (*Model, error) {
	if !tagset.hasSentinels(EOSTag, BOSTag) {
		return nil, fmt.Errorf("%w: tag set must end with %q, %q", ErrConfig, EOSTag, BOSTag)
	}
	if !vocab.hasSentinels(EOSWord, BOSWord) {
		return nil, fmt.Errorf("%w: vocabulary must end with %q, %q", ErrConfig, EOSWord, BOSWord)
	}
	if tagset.Size() < 3 {
		return nil, fmt.Errorf("%w: tag set has no real tags", ErrConfig)
	}
	if vocab.Size() < 3 {
		return nil, fmt.Errorf("%w: vocabulary has no real words", ErrConfig)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	m := &Model{
		K:       tagset.Size(),
		V:       vocab.Size(),
		Unigram: unigram,
		Tagset:  tagset,
		Vocab:   vocab,
		bosT:    tagset.Size() - 1,
		eosT:    tagset.Size() - 2,
		bosW:    vocab.Size() - 1,
		eosW:    vocab.Size() - 2,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	m.A = mathutil.NewMat(m.K, m.K)
	m.B = mathutil.NewMat(m.K, m.V)
	m.realTags = make([]int, 0, m.K-2)
	m.singleTags = make([][]int, m.K)
	for t := 0; t < m.K; t++ {
		m.singleTags[t] = []int{t}
		if t != m.bosT && t != m.eosT {
			m.realTags = append(m.realTags, t)
		}
	}
	m.initParams(rng)
	return m, nil
}

// SetLogger sets the logger used during training. By default all logs are
// discarded; the library never writes to stderr on its own.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// initParams fills A and B with near-uniform random distributions. The
// jitter breaks ties in the fully unsupervised case; structural zeros are
// forced before normalization so no mass can leak into forbidden cells.
func (m *Model) initParams(rng *rand.Rand) {
	// Emissions: real tags distribute over real words; the sentinel tags
	// deterministically emit their own sentinel words.
	for i := 0; i < m.K; i++ {
		if i == m.bosT || i == m.eosT {
			continue
		}
		row := m.B[i]
		for w := 0; w < m.V-2; w++ {
			row[w] = 1 + 0.01*rng.Float64()
		}
		row[m.eosW] = 0
		row[m.bosW] = 0
		normalizeRow(row)
	}
	m.B[m.bosT][m.bosW] = 1
	m.B[m.eosT][m.eosW] = 1

	// Transitions: the bos column and eos row are structural zeros. In
	// unigram mode a single shared distribution fills every non-boundary
	// row, which keeps the bigram code paths usable unchanged.
	rows := m.K
	if m.Unigram {
		rows = 1
	}
	shared := make([]float64, m.K)
	for r := 0; r < rows; r++ {
		row := shared
		if !m.Unigram {
			row = m.A[r]
			if r == m.eosT {
				continue
			}
		}
		for j := 0; j < m.K; j++ {
			row[j] = 1 + 0.01*rng.Float64()
		}
		row[m.bosT] = 0
		normalizeRow(row)
	}
	if m.Unigram {
		for i := 0; i < m.K; i++ {
			if i == m.eosT {
				continue
			}
			copy(m.A[i], shared)
		}
	}
	m.refreshLog()
}

// NewCounts allocates a zeroed accumulator pair shaped for this model.
func (m *Model) NewCounts() *Counts {
	return &Counts{
		A: mathutil.NewMat(m.K, m.K),
		B: mathutil.NewMat(m.K, m.V),
	}
}

// Zero resets the accumulators in place.
func (c *Counts) Zero() {
	mathutil.FillMat(c.A, 0)
	mathutil.FillMat(c.B, 0)
}

// Merge adds other into c. Used to combine per-worker accumulators at the
// end of a parallel E step.
func (c *Counts) Merge(other *Counts) {
	for i := range c.A {
		for j := range c.A[i] {
			c.A[i][j] += other.A[i][j]
		}
	}
	for i := range c.B {
		for j := range c.B[i] {
			c.B[i][j] += other.B[i][j]
		}
	}
}

// Reestimate replaces A and B with the add-lambda smoothed, row-normalized
// distributions implied by the accumulated expected counts. Counts in
// structurally forbidden cells mean the accumulation itself is buggy, so
// they fail loudly instead of being corrected. A row whose smoothed total
// is zero (possible only at lambda 0, for a tag the corpus never used) is
// left all-zero.
func (m *Model) Reestimate(c *Counts, lambda float64) error {
	if lambda < 0 {
		return fmt.Errorf("%w: smoothing parameter %g must be >= 0", ErrConfig, lambda)
	}
	if err := m.checkCounts(c); err != nil {
		return err
	}

	// Emissions for real tags; the sentinel rows stay deterministic.
	for i := 0; i < m.K; i++ {
		if i == m.bosT || i == m.eosT {
			continue
		}
		row := m.B[i]
		for w := 0; w < m.V-2; w++ {
			row[w] = c.B[i][w] + lambda
		}
		row[m.eosW] = 0
		row[m.bosW] = 0
		normalizeRow(row)
	}
	m.B[m.bosT][m.bosW] = 1
	m.B[m.eosT][m.eosW] = 1

	if m.Unigram {
		// Pool counts over source tags into the single shared distribution.
		shared := make([]float64, m.K)
		for j := 0; j < m.K; j++ {
			if j == m.bosT {
				continue
			}
			for i := 0; i < m.K; i++ {
				shared[j] += c.A[i][j]
			}
			shared[j] += lambda
		}
		normalizeRow(shared)
		for i := 0; i < m.K; i++ {
			if i == m.eosT {
				for j := range m.A[i] {
					m.A[i][j] = 0
				}
				continue
			}
			copy(m.A[i], shared)
		}
	} else {
		for i := 0; i < m.K; i++ {
			row := m.A[i]
			if i == m.eosT {
				for j := range row {
					row[j] = 0
				}
				continue
			}
			for j := 0; j < m.K; j++ {
				if j == m.bosT {
					row[j] = 0
					continue
				}
				row[j] = c.A[i][j] + lambda
			}
			normalizeRow(row)
		}
	}

	m.refreshLog()
	return m.Validate()
}

// checkCounts verifies that no expected count has leaked into a
// structurally forbidden cell.
func (m *Model) checkCounts(c *Counts) error {
	for i := 0; i < m.K; i++ {
		if c.A[i][m.bosT] != 0 {
			return fmt.Errorf("%w: expected transition counts into bos are not zero (from %q)",
				ErrInternal, m.Tagset.StringOf(i))
		}
		if c.A[m.eosT][i] != 0 {
			return fmt.Errorf("%w: expected transition counts out of eos are not zero (to %q)",
				ErrInternal, m.Tagset.StringOf(i))
		}
	}
	for w := 0; w < m.V; w++ {
		if c.B[m.bosT][w] != 0 || c.B[m.eosT][w] != 0 {
			return fmt.Errorf("%w: expected emission counts from a sentinel tag are not zero (word %q)",
				ErrInternal, m.Vocab.StringOf(w))
		}
	}
	for i := 0; i < m.K; i++ {
		if c.B[i][m.eosW] != 0 || c.B[i][m.bosW] != 0 {
			return fmt.Errorf("%w: expected emission counts for a sentinel word are not zero (tag %q)",
				ErrInternal, m.Tagset.StringOf(i))
		}
	}
	return nil
}

// Validate checks the distribution invariants: structural zeros are exact,
// and every nonzero row sums to 1 within tolerance. It is run after
// initialization, after every re-estimation, and after loading a snapshot.
func (m *Model) Validate() error {
	const tol = 1e-6
	for i := 0; i < m.K; i++ {
		if m.A[i][m.bosT] != 0 {
			return fmt.Errorf("%w: A has mass into bos from %q", ErrInternal, m.Tagset.StringOf(i))
		}
		if m.A[m.eosT][i] != 0 {
			return fmt.Errorf("%w: A has mass out of eos to %q", ErrInternal, m.Tagset.StringOf(i))
		}
	}
	for i := 0; i < m.K; i++ {
		sum := mathutil.SumVec(m.A[i])
		if i == m.eosT {
			continue
		}
		if sum != 0 && math.Abs(sum-1) > tol {
			return fmt.Errorf("%w: transition row %q sums to %g", ErrInternal, m.Tagset.StringOf(i), sum)
		}
	}
	for i := 0; i < m.K; i++ {
		row := m.B[i]
		if i == m.bosT || i == m.eosT {
			want := m.bosW
			if i == m.eosT {
				want = m.eosW
			}
			for w := 0; w < m.V; w++ {
				switch {
				case w == want && row[w] != 1:
					return fmt.Errorf("%w: sentinel tag %q does not emit its word deterministically",
						ErrInternal, m.Tagset.StringOf(i))
				case w != want && row[w] != 0:
					return fmt.Errorf("%w: sentinel tag %q has mass on word %q",
						ErrInternal, m.Tagset.StringOf(i), m.Vocab.StringOf(w))
				}
			}
			continue
		}
		if row[m.eosW] != 0 || row[m.bosW] != 0 {
			return fmt.Errorf("%w: tag %q has mass on a sentinel word", ErrInternal, m.Tagset.StringOf(i))
		}
		sum := mathutil.SumVec(row)
		if sum != 0 && math.Abs(sum-1) > tol {
			return fmt.Errorf("%w: emission row %q sums to %g", ErrInternal, m.Tagset.StringOf(i), sum)
		}
	}
	if m.Unigram {
		var ref mathutil.Vec
		for i := 0; i < m.K; i++ {
			if i == m.eosT {
				continue
			}
			if ref == nil {
				ref = m.A[i]
				continue
			}
			for j := 0; j < m.K; j++ {
				if m.A[i][j] != ref[j] {
					return fmt.Errorf("%w: unigram transition rows are not identical", ErrInternal)
				}
			}
		}
	}
	return nil
}

// IntegerizeSentence converts a sentence drawn from the given corpus into
// index form, wrapping it in the bos and eos sentinel tokens. The corpus
// must share this model's tag set and vocabulary; anything else is a fatal
// mismatch, not a recoverable condition.
func (m *Model) IntegerizeSentence(s Sentence, c *Corpus) (IndexedSentence, error) {
	if c.Tagset != m.Tagset || c.Vocab != m.Vocab {
		return nil, fmt.Errorf("%w: sentence comes from a different corpus", ErrCorpusMismatch)
	}
	isent := make(IndexedSentence, 0, len(s)+2)
	isent = append(isent, IndexedToken{Word: m.bosW, Tag: m.bosT})
	for _, tok := range s {
		w, ok := m.Vocab.IndexOf(tok.Word)
		if !ok {
			w, ok = m.Vocab.IndexOf(OOVWord)
			if !ok {
				return nil, fmt.Errorf("%w: word %q not in vocabulary", ErrCorpusMismatch, tok.Word)
			}
		}
		tag := -1
		if tok.HasTag {
			tag, ok = m.Tagset.IndexOf(tok.Tag)
			if !ok {
				return nil, fmt.Errorf("%w: tag %q not in tag set", ErrCorpusMismatch, tok.Tag)
			}
		}
		isent = append(isent, IndexedToken{Word: w, Tag: tag})
	}
	isent = append(isent, IndexedToken{Word: m.eosW, Tag: m.eosT})
	return isent, nil
}

// refreshLog rebuilds the log-domain views of A and B. Called at every
// point where the linear parameters change.
func (m *Model) refreshLog() {
	if m.logA == nil {
		m.logA = mathutil.NewMat(m.K, m.K)
		m.logB = mathutil.NewMat(m.K, m.V)
	}
	for i := 0; i < m.K; i++ {
		for j := 0; j < m.K; j++ {
			m.logA[i][j] = mathutil.Log(m.A[i][j])
		}
		for w := 0; w < m.V; w++ {
			m.logB[i][w] = mathutil.Log(m.B[i][w])
		}
	}
}

// normalizeRow scales row to sum to 1. A zero row is left untouched.
func normalizeRow(row []float64) {
	sum := mathutil.SumVec(row)
	if sum == 0 {
		return
	}
	for i := range row {
		row[i] /= sum
	}
}
