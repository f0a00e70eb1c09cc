// Package enhance implements the deterministic prompt composition engine:
// folding a context profile's preference fields into a free-text prompt,
// the optional relationship-driven enhancement layer, and the compatibility
// scorer. All functions here are pure with respect to (prompt, profile).
package enhance

import (
	"strings"

	"github.com/promptforge/promptforge/internal/profile"
)

// DefaultSeparator joins composed clauses unless the caller overrides it.
const DefaultSeparator = ", "

// Caps applied by the detailed variant. The basic variant joins full lists.
const (
	detailedColorCap = 3
	detailedValueCap = 2
	detailedAvoidCap = 3
)

// Options controls prompt composition.
type Options struct {
	// Separator joins clauses; empty means DefaultSeparator.
	Separator string

	// Detailed selects the capped variant: color palette limited to 3
	// entries, brand values to 2, avoid terms to 3, and the lighting and
	// composition clauses enabled.
	Detailed bool

	// IncludeNegatives opts in to the trailing "avoid: ..." clause.
	IncludeNegatives bool
}

// rule is one entry in the fixed composition sequence: it inspects the
// profile context and either yields a clause or declines.
type rule struct {
	name  string
	build func(c profile.Context, o Options) (string, bool)
}

// rules is the composition sequence. Order is part of the contract: clauses
// always appear in this order, each skipped when its source field is empty.
var rules = []rule{
	{"style", func(c profile.Context, _ Options) (string, bool) {
		return suffixClause(c.UserPreferences.Style, "style")
	}},
	{"mood", func(c profile.Context, _ Options) (string, bool) {
		return suffixClause(c.UserPreferences.Mood, "mood")
	}},
	{"color_palette", func(c profile.Context, o Options) (string, bool) {
		return listClause("color palette: ", c.UserPreferences.ColorPalette, capFor(o, detailedColorCap))
	}},
	{"theme", func(c profile.Context, _ Options) (string, bool) {
		return suffixClause(c.ProjectContext.Theme, "theme")
	}},
	{"brand_values", func(c profile.Context, o Options) (string, bool) {
		return listClause("brand values: ", c.BrandGuidelines.Values, capFor(o, detailedValueCap))
	}},
	{"quality", func(c profile.Context, _ Options) (string, bool) {
		return suffixClause(c.TechnicalPreferences.Quality, "quality")
	}},
	{"lighting", func(c profile.Context, o Options) (string, bool) {
		if !o.Detailed {
			return "", false
		}
		return suffixClause(c.UserPreferences.Lighting, "lighting")
	}},
	{"composition", func(c profile.Context, o Options) (string, bool) {
		if !o.Detailed {
			return "", false
		}
		return suffixClause(c.UserPreferences.Composition, "composition")
	}},
	{"avoid", func(c profile.Context, o Options) (string, bool) {
		if !o.IncludeNegatives {
			return "", false
		}
		return listClause("avoid: ", c.UserPreferences.Avoid, capFor(o, detailedAvoidCap))
	}},
}

// Compose appends profile-derived clauses to prompt in the fixed rule order.
// The original prompt always comes first, unchanged. Composition is pure:
// the same (prompt, profile, options) always yields the same string.
func Compose(prompt string, p *profile.Profile, opts Options) string {
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	parts := []string{prompt}
	for _, r := range rules {
		if clause, ok := r.build(p.Context, opts); ok {
			parts = append(parts, clause)
		}
	}
	return strings.Join(parts, sep)
}

func suffixClause(value, suffix string) (string, bool) {
	if value == "" {
		return "", false
	}
	return value + " " + suffix, true
}

func listClause(prefix string, items []string, limit int) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return prefix + strings.Join(items, ", "), true
}

// capFor returns the detailed-variant cap, or 0 (unlimited) for the basic
// variant.
func capFor(o Options, limit int) int {
	if o.Detailed {
		return limit
	}
	return 0
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
