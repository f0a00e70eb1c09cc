package llm

import (
	"context"
	"fmt"
	"strings"
)

// Domain selects the prompt-engineering instructions and output limits for
// an enhancement request.
type Domain string

const (
	DomainImage Domain = "image"
	DomainVideo Domain = "video"
)

// videoPromptLimit is the hard character ceiling for video prompts; the
// downstream video model rejects prompts over 500 characters.
const videoPromptLimit = 500

// DefaultModel is used when the caller does not name an enhancement model.
const DefaultModel = "deepseek/deepseek-r1"

// modelInfo describes a known enhancement model.
type modelInfo struct {
	Name      string
	Reasoning bool
}

// knownModels maps OpenRouter model slugs to their traits. Reasoning models
// behave better at lower temperatures.
var knownModels = map[string]modelInfo{
	"deepseek/deepseek-r1":                  {Name: "DeepSeek R1", Reasoning: true},
	"google/gemini-2.5-flash-preview-05-20": {Name: "Gemini 2.5 Flash", Reasoning: true},
	"meta-llama/llama-3.1-8b-instruct":      {Name: "Llama 3.1 8B", Reasoning: false},
	"openai/o3-mini":                        {Name: "GPT-o3 Mini", Reasoning: true},
	"anthropic/claude-3.5-sonnet":           {Name: "Claude 3.5 Sonnet", Reasoning: true},
	"openai/o1-mini":                        {Name: "GPT-o1 Mini", Reasoning: true},
}

type domainLimits struct {
	maxTokens    int
	targetLength string
}

var limitsByDomain = map[Domain]domainLimits{
	DomainImage: {maxTokens: 1000, targetLength: "200-400 words"},
	DomainVideo: {maxTokens: 500, targetLength: "MAXIMUM 480 characters"},
}

// EnhanceResult reports the outcome of a prompt enhancement. On failure,
// EnhancedPrompt still carries the original text as a safe fallback so the
// pipeline can proceed unenhanced.
type EnhanceResult struct {
	OriginalPrompt string `json:"originalPrompt"`
	EnhancedPrompt string `json:"enhancedPrompt"`
	Model          string `json:"model"`
	Enhanced       bool   `json:"enhanced"`
	Truncated      bool   `json:"truncated,omitempty"`
}

// EnhanceOptions configures an Enhance call.
type EnhanceOptions struct {
	Provider string
	Model    string
	Enabled  bool
}

// Enhance rewrites a generation prompt through a text-completion model.
// When disabled it passes the text through unchanged. Video-domain output is
// truncated to the 500-character model limit. Any provider failure returns
// the original text as fallback alongside the error.
func Enhance(ctx context.Context, text string, domain Domain, opts EnhanceOptions) (EnhanceResult, error) {
	if !opts.Enabled {
		return EnhanceResult{
			OriginalPrompt: text,
			EnhancedPrompt: text,
			Model:          "none",
		}, nil
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	fallback := EnhanceResult{
		OriginalPrompt: text,
		EnhancedPrompt: text,
		Model:          model,
	}

	provider, err := NewProvider(opts.Provider, model)
	if err != nil {
		return fallback, fmt.Errorf("llm: create provider: %w", err)
	}

	limits, ok := limitsByDomain[domain]
	if !ok {
		limits = limitsByDomain[DomainImage]
	}

	raw, err := provider.Complete(ctx,
		systemPromptFor(domain, limits.targetLength),
		text,
		limits.maxTokens,
		temperatureFor(model),
	)
	if err != nil {
		return fallback, fmt.Errorf("llm: enhance: %w", err)
	}

	enhanced := strings.TrimSpace(raw)
	result := EnhanceResult{
		OriginalPrompt: text,
		EnhancedPrompt: enhanced,
		Model:          model,
		Enhanced:       true,
	}
	if domain == DomainVideo && len(enhanced) > videoPromptLimit {
		result.EnhancedPrompt = enhanced[:videoPromptLimit-3] + "..."
		result.Truncated = true
	}
	return result, nil
}

// temperatureFor picks the sampling temperature: 0.7 by default, lowered for
// reasoning models, lowest for DeepSeek R1 which degrades above 0.1.
func temperatureFor(model string) float64 {
	info, ok := knownModels[model]
	if !ok || !info.Reasoning {
		return 0.7
	}
	if strings.Contains(model, "deepseek-r1") {
		return 0.1
	}
	return 0.3
}

func systemPromptFor(domain Domain, targetLength string) string {
	if domain == DomainVideo {
		return "You are an expert prompt engineer for AI video generation.\n\n" +
			"CRITICAL CONSTRAINT: the video model has a strict 500 character limit. " +
			"Your enhanced prompt MUST be under 480 characters.\n\n" +
			"Transform the prompt into a concise but dynamic video prompt: add camera " +
			"movements (pan, zoom, tilt), temporal elements, motion details, and " +
			"cinematic techniques. " + targetLength + " - be concise. " +
			"Return ONLY the enhanced video prompt, nothing else."
	}
	return "You are an expert prompt engineer for AI image generation.\n\n" +
		"Transform the user's basic prompt into a detailed, professional prompt: add " +
		"specific visual details (lighting, composition, style), technical parameters " +
		"(camera angles, depth of field), and artistic direction (mood, atmosphere, " +
		"colors) while keeping the core concept intact. Target length: " + targetLength + ". " +
		"Return ONLY the enhanced prompt, nothing else."
}
