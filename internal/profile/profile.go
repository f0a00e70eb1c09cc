// Package profile implements persistent context profiles: named documents of
// style, brand, and technical preferences that are folded into free-text
// generation prompts. A profile is a self-describing JSON document with four
// top-level sections (profile, context, memory, relationships); the section
// names are part of the persisted contract and round-trip losslessly.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a profile id has no persisted record.
// Callers should treat this as a normal negative outcome, not a failure.
var ErrNotFound = errors.New("profile: not found")

// ErrInvalidProfile is returned when a document fails structural validation.
var ErrInvalidProfile = errors.New("profile: invalid document")

const (
	initialVersion = "1.0.0"

	// maxSuccessfulPrompts bounds the memory.successful_prompts sliding
	// window; the oldest records are dropped first.
	maxSuccessfulPrompts = 50

	// defaultQuality is the baseline quality score recorded for a successful
	// generation when the caller supplies none.
	defaultQuality = 8

	defaultFeedback = "generated successfully"
)

// Profile is the central entity. The JSON field names mirror the persisted
// document layout exactly.
type Profile struct {
	Meta          Metadata      `json:"profile"`
	Context       Context       `json:"context"`
	Memory        Memory        `json:"memory"`
	Relationships Relationships `json:"relationships"`
}

// Metadata carries identity and lifecycle fields. ID and Created are
// immutable after creation; Version follows MAJOR.MINOR.PATCH and has its
// patch component bumped on every update.
type Metadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// Context groups the four preference sections. All fields are optional; the
// merge engine and scorer skip whatever is absent.
type Context struct {
	UserPreferences      UserPreferences      `json:"user_preferences"`
	ProjectContext       ProjectContext       `json:"project_context"`
	TechnicalPreferences TechnicalPreferences `json:"technical_preferences"`
	BrandGuidelines      BrandGuidelines      `json:"brand_guidelines"`
}

type UserPreferences struct {
	Style        string   `json:"style,omitempty"`
	Mood         string   `json:"mood,omitempty"`
	ColorPalette []string `json:"color_palette,omitempty"`
	Avoid        []string `json:"avoid,omitempty"`
	Lighting     string   `json:"lighting,omitempty"`
	Composition  string   `json:"composition,omitempty"`
}

type ProjectContext struct {
	Theme          string `json:"theme,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
}

type TechnicalPreferences struct {
	Quality         string `json:"quality,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	OutputFormat    string `json:"output_format,omitempty"`
	ModelPreference string `json:"model_preference,omitempty"`
}

type BrandGuidelines struct {
	Values []string `json:"values,omitempty"`
}

// Memory is the mutable learning state appended to by the usage tracker.
type Memory struct {
	SuccessfulPrompts []SuccessRecord `json:"successful_prompts"`
	LearnedPatterns   LearnedPatterns `json:"learned_patterns"`
	UsageStats        UsageStats      `json:"usage_stats"`
}

// SuccessRecord captures one confirmed-good generation.
type SuccessRecord struct {
	Prompt        string    `json:"prompt"`
	Timestamp     time.Time `json:"timestamp"`
	ResultQuality int       `json:"result_quality"`
	UserFeedback  string    `json:"user_feedback"`
}

// LearnedPatterns holds keywords and style-combination rules empirically
// associated with past successful generations. Style combinations use the
// form "styleA+styleB=resultTerms".
type LearnedPatterns struct {
	EffectiveKeywords []string `json:"effective_keywords,omitempty"`
	StyleCombinations []string `json:"style_combinations,omitempty"`
}

type UsageStats struct {
	TotalGenerations int        `json:"total_generations"`
	SuccessRate      float64    `json:"success_rate"`
	LastUsed         *time.Time `json:"last_used"`
}

// Relationships maps concepts and styles to related terms. Both mappings are
// consulted only by the advanced merge layer.
type Relationships struct {
	SemanticConnections map[string][]string `json:"semantic_connections"`
	StyleAssociations   map[string][]string `json:"style_associations"`
}

// Summary is the lightweight listing view of a profile.
type Summary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Version          string     `json:"version"`
	Created          time.Time  `json:"created"`
	Updated          time.Time  `json:"updated"`
	TotalGenerations int        `json:"total_generations"`
	LastUsed         *time.Time `json:"last_used"`
}

// Summary returns the listing view of p.
func (p *Profile) Summary() Summary {
	return Summary{
		ID:               p.Meta.ID,
		Name:             p.Meta.Name,
		Description:      p.Meta.Description,
		Version:          p.Meta.Version,
		Created:          p.Meta.Created,
		Updated:          p.Meta.Updated,
		TotalGenerations: p.Memory.UsageStats.TotalGenerations,
		LastUsed:         p.Memory.UsageStats.LastUsed,
	}
}

// Validate checks the invariants every stored document must satisfy:
// non-empty id and name. Section presence is checked at decode time, where
// the raw JSON is still available.
func (p *Profile) Validate() error {
	if p.Meta.ID == "" {
		return fmt.Errorf("%w: metadata id is empty", ErrInvalidProfile)
	}
	if p.Meta.Name == "" {
		return fmt.Errorf("%w: metadata name is empty", ErrInvalidProfile)
	}
	return nil
}

// requiredSections are the four top-level keys a well-formed document carries.
var requiredSections = []string{"profile", "context", "memory", "relationships"}

// Decode parses and validates a persisted profile document.
func Decode(data []byte) (*Profile, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	for _, name := range requiredSections {
		if _, ok := sections[name]; !ok {
			return nil, fmt.Errorf("%w: missing required section %q", ErrInvalidProfile, name)
		}
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode serializes p in the persisted document layout.
func Encode(p *Profile) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("profile: encode: %w", err)
	}
	return data, nil
}

var idSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateID derives a stable identifier from a profile name and its creation
// time: the lowercased name with runs of non-alphanumerics collapsed to a
// single underscore, trimmed, plus the creation timestamp in milliseconds.
// The timestamp keeps ids unique across repeated names.
func GenerateID(name string, created time.Time) string {
	s := strings.ToLower(name)
	s = idSanitizeRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return fmt.Sprintf("%s_%d", s, created.UnixMilli())
}

// bumpPatch increments the patch component of a MAJOR.MINOR.PATCH version
// string. Malformed versions are left unchanged rather than corrected.
func bumpPatch(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return version
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return version
	}
	parts[2] = strconv.Itoa(patch + 1)
	return strings.Join(parts, ".")
}

// deepMerge folds src into dst recursively: map values merge key by key,
// while arrays and scalars are replaced wholesale by the incoming value.
// dst is not modified; the merged result is returned.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if !srcIsMap {
			out[k] = v
			continue
		}
		dstMap, dstIsMap := out[k].(map[string]any)
		if !dstIsMap {
			dstMap = map[string]any{}
		}
		out[k] = deepMerge(dstMap, srcMap)
	}
	return out
}
