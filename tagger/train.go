package tagger

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// LossFunc evaluates the model after each M step; training stops when the
// relative improvement falls below the configured tolerance. Typically a
// held-out cross-entropy, see CrossEntropyLoss.
type LossFunc func(*Model) (float64, error)

// TrainConfig holds the EM training parameters.
type TrainConfig struct {
	// Lambda is the add-lambda smoothing constant for the M step.
	// Must be >= 0; zero means no smoothing.
	Lambda float64

	// Tolerance is the relative loss improvement below which training
	// stops. A negative improvement (the loss got worse) always stops.
	Tolerance float64

	// MaxSteps caps the number of EM epochs. Zero performs no M step and
	// leaves the parameters exactly as initialized.
	MaxSteps int

	// SavePath, when non-empty, receives a snapshot of the final
	// parameters after training finishes.
	SavePath string

	// Workers sets the number of goroutines accumulating expected counts
	// within one epoch. Values below 2 select the strictly sequential
	// reference behavior. Each worker owns a local accumulator pair, and
	// the pairs are merged before the M step, so re-estimation never
	// observes a partial epoch.
	Workers int

	// Progress, when set, is called after each sentence of each epoch
	// with (epoch, sentencesDone, sentencesTotal). With Workers > 1 it
	// may be called from multiple goroutines.
	Progress func(epoch, done, total int)
}

// DefaultTrainConfig returns the training parameters used by the command
// line tools.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Lambda:    0,
		Tolerance: 0.001,
		MaxSteps:  50,
		Workers:   1,
	}
}

// Train runs Baum-Welch EM on the corpus, starting from the current
// parameters. Each epoch accumulates expected counts over every training
// sentence, re-estimates the parameters with add-lambda smoothing, and
// evaluates loss; training stops once the relative improvement drops below
// cfg.Tolerance or the epoch cap is reached. The initial loss is
// evaluated once on the starting parameters before any epoch runs.
//
// A configuration error, a corpus mismatch, an unscorable sentence, or a
// loss failure aborts the run; no sentence is ever skipped silently.
func (m *Model) Train(corpus *Corpus, loss LossFunc, cfg TrainConfig) error {
	if cfg.Lambda < 0 {
		return fmt.Errorf("%w: smoothing parameter %g must be >= 0", ErrConfig, cfg.Lambda)
	}
	if loss == nil {
		return fmt.Errorf("%w: nil loss function", ErrConfig)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	// Integerize once up front. The mapping is fixed for the lifetime of
	// the model, so there is no reason to redo it every epoch, and a
	// mismatched corpus fails here before any work happens.
	isents := make([]IndexedSentence, len(corpus.Sentences))
	for i, s := range corpus.Sentences {
		isent, err := m.IntegerizeSentence(s, corpus)
		if err != nil {
			return err
		}
		isents[i] = isent
	}

	oldLoss, err := loss(m)
	if err != nil {
		return fmt.Errorf("evaluating initial loss: %w", err)
	}
	m.logger.Info("training start",
		"sentences", len(isents), "lambda", cfg.Lambda, "tolerance", cfg.Tolerance,
		"maxSteps", cfg.MaxSteps, "unigram", m.Unigram, "initialLoss", oldLoss)

	counts := m.NewCounts()
	for step := 0; step < cfg.MaxSteps; step++ {
		counts.Zero()

		// E step: every sentence contributes before the M step runs.
		if workers > 1 {
			if err := m.accumulateParallel(isents, counts, workers, step, cfg.Progress); err != nil {
				return err
			}
		} else {
			for i, isent := range isents {
				if err := m.AccumulateExpectedCounts(isent, 1, counts); err != nil {
					return fmt.Errorf("sentence %d: %w", i, err)
				}
				if cfg.Progress != nil {
					cfg.Progress(step, i+1, len(isents))
				}
			}
		}

		// M step.
		if err := m.Reestimate(counts, cfg.Lambda); err != nil {
			return err
		}

		newLoss, err := loss(m)
		if err != nil {
			return fmt.Errorf("evaluating loss after epoch %d: %w", step+1, err)
		}
		m.logger.Info("epoch complete", "epoch", step+1, "loss", newLoss)

		// Early stopping: the improvement since the previous epoch is too
		// small, or negative (overfitting).
		if newLoss >= oldLoss*(1-cfg.Tolerance) {
			m.logger.Info("converged", "epoch", step+1, "loss", newLoss, "previous", oldLoss)
			break
		}
		oldLoss = newLoss
	}

	if cfg.SavePath != "" {
		if err := m.Save(cfg.SavePath); err != nil {
			return fmt.Errorf("saving trained model: %w", err)
		}
	}
	return nil
}

// accumulateParallel fans the E step out over several workers, each with
// its own accumulator pair, and merges the pairs into counts once every
// sentence has been processed. A and B are only read here, so the workers
// share them safely.
func (m *Model) accumulateParallel(isents []IndexedSentence, counts *Counts, workers, epoch int, progress func(epoch, done, total int)) error {
	if workers > len(isents) {
		workers = len(isents)
	}
	if workers < 1 {
		workers = 1
	}

	locals := make([]*Counts, workers)
	errs := make([]error, workers)
	var done atomic.Int64
	var wg sync.WaitGroup

	chunk := (len(isents) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(isents) {
			hi = len(isents)
		}
		locals[w] = m.NewCounts()
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if err := m.AccumulateExpectedCounts(isents[i], 1, locals[w]); err != nil {
					errs[w] = fmt.Errorf("sentence %d: %w", i, err)
					return
				}
				n := done.Add(1)
				if progress != nil {
					progress(epoch, int(n), len(isents))
				}
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	for _, local := range locals {
		counts.Merge(local)
	}
	return nil
}

// CrossEntropyLoss returns a LossFunc computing the per-token
// cross-entropy (nats) of the model on the given held-out corpus. Lower is
// better; sentinel tokens are not counted.
func CrossEntropyLoss(dev *Corpus) LossFunc {
	return func(m *Model) (float64, error) {
		var total float64
		var tokens int
		for _, s := range dev.Sentences {
			lp, err := m.LogProb(s, dev)
			if err != nil {
				return 0, err
			}
			total -= lp
			tokens += len(s)
		}
		if tokens == 0 {
			return 0, fmt.Errorf("%w: empty held-out corpus", ErrConfig)
		}
		if math.IsInf(total, 1) {
			return math.Inf(1), nil
		}
		return total / float64(tokens), nil
	}
}
