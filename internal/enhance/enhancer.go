package enhance

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/promptforge/promptforge/internal/profile"
)

// Enhancer composes profile loading, prompt merging, and usage recording.
// It is the convenience entry point request handlers use.
type Enhancer struct {
	store *profile.Store
	log   *zap.SugaredLogger
}

// NewEnhancer builds an Enhancer over the given store. A nil logger is
// replaced with a no-op logger.
func NewEnhancer(store *profile.Store, log *zap.SugaredLogger) *Enhancer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Enhancer{store: store, log: log}
}

// EnhanceOptions controls a single enhancement request.
type EnhanceOptions struct {
	Compose Options

	// Advanced enables the relationship-driven enhancement layer on top of
	// the clause composition.
	Advanced bool

	// TargetModel selects the per-model emphasis suffix in the advanced
	// layer; empty skips it.
	TargetModel string
}

// Result is the outcome of applying a profile to a prompt. EnhancedPrompt is
// always usable: when enhancement fails it falls back to the original prompt
// so the caller's pipeline can proceed without the enhancement.
type Result struct {
	EnhancedPrompt string           `json:"enhancedPrompt"`
	OriginalPrompt string           `json:"originalPrompt"`
	Applied        bool             `json:"contextApplied"`
	Profile        *profile.Profile `json:"profile,omitempty"`
}

// Apply loads a profile, merges it into the prompt with the basic variant,
// and records the usage. A missing profile returns the unmodified prompt
// together with profile.ErrNotFound.
func (e *Enhancer) Apply(prompt, profileID string) (Result, error) {
	return e.EnhanceWithContext(prompt, profileID, EnhanceOptions{})
}

// EnhanceWithContext applies the named profile to the prompt under the given
// options. Usage recording is fire-and-forget: a recording failure is logged
// but does not fail the enhancement.
func (e *Enhancer) EnhanceWithContext(prompt, profileID string, opts EnhanceOptions) (Result, error) {
	fallback := Result{EnhancedPrompt: prompt, OriginalPrompt: prompt}

	p, err := e.store.Load(profileID)
	if err != nil {
		return fallback, err
	}
	if p == nil {
		e.log.Warnw("profile not found, using original prompt", "id", profileID)
		return fallback, fmt.Errorf("%w: %s", profile.ErrNotFound, profileID)
	}

	enhanced := Compose(prompt, p, opts.Compose)
	if opts.Advanced {
		enhanced = ApplyAdvanced(enhanced, p, opts.TargetModel)
	}

	if err := e.store.RecordUsage(profileID); err != nil {
		e.log.Warnw("usage recording failed", "id", profileID, "error", err)
	}

	e.log.Debugw("applied context profile",
		"id", profileID, "original", prompt, "enhanced", enhanced)

	return Result{
		EnhancedPrompt: enhanced,
		OriginalPrompt: prompt,
		Applied:        true,
		Profile:        p,
	}, nil
}
