package tagger

import (
	"fmt"
	"math"

	"github.com/ieee0824/tagger-go/internal/mathutil"
)

// The forward-backward engine works entirely in the log domain with
// mathutil.LogZero as log(0), so no per-position rescaling is needed and
// sequences of any length stay clear of underflow. Expected counts are
// accumulated in linear space; each summand is exp of a log-posterior and
// therefore at most 1.

// Forward runs the forward algorithm over an integerized sentence and
// returns the full alpha table (positions 0..n+1, log domain) together
// with log Z = alpha[n+1][eos], the log-probability of the sentence. If
// any position carries an observed tag, only that tag participates there,
// so log Z marginalizes exactly over the unobserved positions.
//
// The table and log Z are returned as values; nothing is remembered on the
// model between calls.
func (m *Model) Forward(isent IndexedSentence) (mathutil.Mat, float64) {
	n := len(isent) - 2
	alpha := mathutil.NewMatFill(n+2, m.K, mathutil.LogZero)
	alpha[0][m.bosT] = 0

	for t := 1; t <= n+1; t++ {
		tok := isent[t]
		for _, j := range m.permittedTags(tok) {
			emit := m.logB[j][tok.Word]
			if emit <= mathutil.LogZero+1 {
				continue
			}
			sum := mathutil.LogZero
			for _, i := range m.permittedTags(isent[t-1]) {
				prev := alpha[t-1][i]
				if prev <= mathutil.LogZero+1 {
					continue
				}
				la := m.logA[i][j]
				if la <= mathutil.LogZero+1 {
					continue
				}
				sum = mathutil.LogAdd(sum, prev+la)
			}
			if sum <= mathutil.LogZero+1 {
				continue
			}
			alpha[t][j] = sum + emit
		}
	}
	return alpha, alpha[n+1][m.eosT]
}

// Backward runs the backward algorithm and returns the beta table together
// with the backward log Z = beta[0][bos]. For a correct model this must
// agree with the forward log Z up to floating-point tolerance; the
// cross-check lives in AccumulateExpectedCounts.
func (m *Model) Backward(isent IndexedSentence) (mathutil.Mat, float64) {
	n := len(isent) - 2
	beta := mathutil.NewMatFill(n+2, m.K, mathutil.LogZero)
	beta[n+1][m.eosT] = 0

	for t := n; t >= 0; t-- {
		next := isent[t+1]
		for _, i := range m.permittedTags(isent[t]) {
			sum := mathutil.LogZero
			for _, j := range m.permittedTags(next) {
				la := m.logA[i][j]
				if la <= mathutil.LogZero+1 {
					continue
				}
				emit := m.logB[j][next.Word]
				if emit <= mathutil.LogZero+1 {
					continue
				}
				nb := beta[t+1][j]
				if nb <= mathutil.LogZero+1 {
					continue
				}
				sum = mathutil.LogAdd(sum, la+emit+nb)
			}
			beta[t][i] = sum
		}
	}
	return beta, beta[0][m.bosT]
}

// AccumulateExpectedCounts runs forward-backward on one sentence and adds
// its posterior expected transition and emission counts, weighted by mult,
// into c. This is the E step for a single sentence: counts are fractional
// where tags are unobserved and collapse to hard counts where they are
// observed. The model parameters are not touched.
//
// A disagreement between the forward and backward log Z is an algorithm
// bug and returns ErrInternal. A sentence with no permitted path returns
// ErrNoPath; training treats that as fatal rather than skipping the
// sentence.
func (m *Model) AccumulateExpectedCounts(isent IndexedSentence, mult float64, c *Counts) error {
	alpha, logZ := m.Forward(isent)
	beta, logZb := m.Backward(isent)
	if logZ <= mathutil.LogZero+1 || logZb <= mathutil.LogZero+1 {
		return fmt.Errorf("%w: sentence has probability zero under the current parameters", ErrNoPath)
	}
	if math.Abs(logZ-logZb) > 1e-6*math.Max(1, math.Abs(logZ)) {
		return fmt.Errorf("%w: forward log Z %g and backward log Z %g disagree", ErrInternal, logZ, logZb)
	}

	n := len(isent) - 2

	// Transition counts: xi(t, i, j) for every permitted pair, including
	// bos -> first tag and last tag -> eos.
	for t := 0; t <= n; t++ {
		next := isent[t+1]
		for _, i := range m.permittedTags(isent[t]) {
			ai := alpha[t][i]
			if ai <= mathutil.LogZero+1 {
				continue
			}
			for _, j := range m.permittedTags(next) {
				la := m.logA[i][j]
				if la <= mathutil.LogZero+1 {
					continue
				}
				emit := m.logB[j][next.Word]
				if emit <= mathutil.LogZero+1 {
					continue
				}
				nb := beta[t+1][j]
				if nb <= mathutil.LogZero+1 {
					continue
				}
				c.A[i][j] += mult * math.Exp(ai+la+emit+nb-logZ)
			}
		}
	}

	// Emission counts: gamma(t, j) for the real positions only. Sentinel
	// emissions are deterministic and never counted.
	for t := 1; t <= n; t++ {
		tok := isent[t]
		for _, j := range m.permittedTags(tok) {
			aj := alpha[t][j]
			if aj <= mathutil.LogZero+1 {
				continue
			}
			bj := beta[t][j]
			if bj <= mathutil.LogZero+1 {
				continue
			}
			c.B[j][tok.Word] += mult * math.Exp(aj+bj-logZ)
		}
	}
	return nil
}

// LogProb returns the log-probability of the sentence under the current
// parameters, marginalizing over any unobserved tags. A sentence with no
// permitted path scores -Inf.
func (m *Model) LogProb(s Sentence, c *Corpus) (float64, error) {
	isent, err := m.IntegerizeSentence(s, c)
	if err != nil {
		return 0, err
	}
	_, logZ := m.Forward(isent)
	if logZ <= mathutil.LogZero+1 {
		return math.Inf(-1), nil
	}
	return logZ, nil
}

// permittedTags returns the tag candidates at a position: the observed tag
// when the position is supervised, every real tag otherwise. The returned
// slices are read-only views shared across calls.
func (m *Model) permittedTags(tok IndexedToken) []int {
	if tok.Tag >= 0 {
		return m.singleTags[tok.Tag]
	}
	return m.realTags
}
