package enhance

import (
	"fmt"

	"github.com/promptforge/promptforge/internal/profile"
)

// Score weights. Additive per matched entry; conflicts subtract.
const (
	styleWeight      = 20
	avoidPenalty     = 15
	colorWeight      = 10
	brandValueWeight = 15

	suggestionThreshold = 50
)

// Compatibility is the result of scoring a prompt against a profile: a
// bounded heuristic score with match/conflict explanations and improvement
// suggestions.
type Compatibility struct {
	Score       int      `json:"score"`
	Matches     []string `json:"matches"`
	Conflicts   []string `json:"conflicts"`
	Suggestions []string `json:"suggestions"`
}

// Score estimates how well a prompt already satisfies a profile. It rewards
// literal keyword presence (case-insensitive substring matching) and is
// deliberately insensitive to paraphrase; that is a documented limitation of
// the heuristic, not a defect. The result is clamped to [0, 100].
func Score(prompt string, p *profile.Profile) Compatibility {
	result := Compatibility{
		Matches:     []string{},
		Conflicts:   []string{},
		Suggestions: []string{},
	}
	prefs := p.Context.UserPreferences

	score := 0
	if prefs.Style != "" && containsFold(prompt, prefs.Style) {
		result.Matches = append(result.Matches, "Style: "+prefs.Style)
		score += styleWeight
	}
	for _, term := range prefs.Avoid {
		if containsFold(prompt, term) {
			result.Conflicts = append(result.Conflicts, "Contains avoided term: "+term)
			score -= avoidPenalty
		}
	}
	for _, color := range prefs.ColorPalette {
		if containsFold(prompt, color) {
			result.Matches = append(result.Matches, "Color: "+color)
			score += colorWeight
		}
	}
	for _, value := range p.Context.BrandGuidelines.Values {
		if containsFold(prompt, value) {
			result.Matches = append(result.Matches, "Brand value: "+value)
			score += brandValueWeight
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	result.Score = score

	if score < suggestionThreshold {
		if prefs.Style != "" && !containsFold(prompt, prefs.Style) {
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("Consider adding %q", prefs.Style+" style"))
		}
		if prefs.Mood != "" && !containsFold(prompt, prefs.Mood) {
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("Consider adding %q", prefs.Mood+" mood"))
		}
	}

	return result
}
