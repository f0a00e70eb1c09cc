package enhance

import (
	"sort"
	"strings"

	"github.com/promptforge/promptforge/internal/profile"
)

// Per-rule insertion caps. Bounding inserted terms keeps prompt growth in
// check when a profile carries many overlapping relationships.
const (
	maxSemanticTerms   = 2
	maxPatternKeywords = 2
	maxStyleTerms      = 1
)

// modelSuffixes is the per-target-model emphasis table. The suffix is
// appended only when not already present verbatim.
var modelSuffixes = map[string]string{
	"kontext-max": ", highly detailed, professional quality",
	"kontext-pro": ", professional grade, detailed composition",
	"pro-ultra":   ", ultra-high quality, masterpiece",
	"alexseis":    ", artistic style, creative interpretation",
}

// ApplyAdvanced runs the relationship-driven enhancement layer over a prompt:
// semantic connections, learned patterns, style associations, then the
// target-model suffix. Each step checks term presence case-insensitively
// against the prompt as mutated so far, so later rules see earlier
// insertions. Map keys are visited in sorted order to keep output
// deterministic.
func ApplyAdvanced(prompt string, p *profile.Profile, targetModel string) string {
	out := applySemanticConnections(prompt, p.Relationships.SemanticConnections)
	out = applyLearnedPatterns(out, p.Memory.LearnedPatterns)
	out = applyStyleAssociations(out, p.Relationships.StyleAssociations)
	if targetModel != "" {
		out = applyModelSuffix(out, targetModel)
	}
	return out
}

// applySemanticConnections appends up to 2 related terms for every concept
// whose text appears in the prompt.
func applySemanticConnections(prompt string, connections map[string][]string) string {
	out := prompt
	for _, concept := range sortedKeys(connections) {
		if !containsFold(prompt, concept) {
			continue
		}
		out = appendMissing(out, connections[concept], maxSemanticTerms)
	}
	return out
}

// applyLearnedPatterns appends up to 2 effective keywords not yet present,
// then completes any style combination ("a+b=result") that is partially
// present in the prompt.
func applyLearnedPatterns(prompt string, patterns profile.LearnedPatterns) string {
	out := appendMissing(prompt, patterns.EffectiveKeywords, maxPatternKeywords)

	for _, combination := range patterns.StyleCombinations {
		eq := strings.Index(combination, "=")
		if eq < 0 {
			continue
		}
		terms := strings.Split(combination[:eq], "+")
		for i := range terms {
			terms[i] = strings.TrimSpace(terms[i])
		}

		triggered := false
		for _, term := range terms {
			if term != "" && containsFold(prompt, term) {
				triggered = true
				break
			}
		}
		if !triggered {
			continue
		}
		// No cap here: a triggered combination is completed in full.
		out = appendMissing(out, terms, 0)
	}
	return out
}

// applyStyleAssociations appends up to 1 associated term for every style key
// present in the prompt.
func applyStyleAssociations(prompt string, associations map[string][]string) string {
	out := prompt
	for _, style := range sortedKeys(associations) {
		if !containsFold(prompt, style) {
			continue
		}
		out = appendMissing(out, associations[style], maxStyleTerms)
	}
	return out
}

// applyModelSuffix appends the target model's emphasis suffix unless the
// prompt already carries it verbatim. The presence check includes the
// suffix's leading comma, so suffix text that merely appears inline does not
// suppress the append.
func applyModelSuffix(prompt, targetModel string) string {
	suffix, ok := modelSuffixes[targetModel]
	if !ok {
		return prompt
	}
	if strings.Contains(prompt, strings.TrimSpace(suffix)) {
		return prompt
	}
	return prompt + suffix
}

// appendMissing appends up to limit terms from candidates that are not
// already present in the prompt (case-insensitive substring check). A limit
// of 0 means unlimited. Terms are joined onto the prompt with ", ".
func appendMissing(prompt string, candidates []string, limit int) string {
	var missing []string
	for _, term := range candidates {
		if term == "" || containsFold(prompt, term) {
			continue
		}
		missing = append(missing, term)
		if limit > 0 && len(missing) == limit {
			break
		}
	}
	if len(missing) == 0 {
		return prompt
	}
	return prompt + ", " + strings.Join(missing, ", ")
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
