package tagger

import "errors"

// Error taxonomy. Configuration and mismatch errors are caller mistakes and
// surface before any work is done. Internal errors indicate an algorithm bug
// (a forward/backward disagreement or expected counts leaking into
// structurally forbidden cells) and are never silently corrected.
var (
	// ErrConfig marks invalid construction or training parameters, such as
	// a negative smoothing constant or a vocabulary missing its sentinels.
	ErrConfig = errors.New("invalid configuration")

	// ErrCorpusMismatch marks a sentence integerized against a different
	// tag set or vocabulary than the model's own.
	ErrCorpusMismatch = errors.New("corpus tagset/vocabulary does not match model")

	// ErrInternal marks an internal consistency failure in the
	// forward-backward computation or the count accumulators.
	ErrInternal = errors.New("internal consistency failure")

	// ErrNoPath marks a sentence that admits no permitted tag path under
	// the current parameters.
	ErrNoPath = errors.New("no permitted tag path")
)
