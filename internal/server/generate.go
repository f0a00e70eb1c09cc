package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/promptforge/promptforge/internal/assets"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/media"
	"github.com/promptforge/promptforge/internal/profile"
)

// promptOptions is the shared prompt-preparation portion of the generation
// request bodies.
type promptOptions struct {
	Prompt    string `json:"prompt"`
	ProfileID string `json:"profileId"`
	Enhance   *bool  `json:"enhance"`
	Provider  string `json:"provider"`
	Model     string `json:"enhanceModel"`
}

func (p promptOptions) enhanceEnabled() bool {
	return p.Enhance == nil || *p.Enhance
}

// preparedPrompt is the outcome of profile application plus LLM enhancement.
type preparedPrompt struct {
	Text           string
	OriginalPrompt string
	ContextApplied bool
	Enhanced       bool
	EnhanceModel   string
	Truncated      bool
}

// preparePrompt runs the prompt pipeline: apply the context profile when one
// is named, then rewrite through the enhancement model when enabled. Both
// stages degrade gracefully; a missing profile or a provider failure leaves
// the prompt as-is and the pipeline continues.
func (s *Server) preparePrompt(ctx context.Context, opts promptOptions, domain llm.Domain) preparedPrompt {
	out := preparedPrompt{Text: opts.Prompt, OriginalPrompt: opts.Prompt}

	if opts.ProfileID != "" {
		result, err := s.enhancer.Apply(opts.Prompt, opts.ProfileID)
		if err != nil && !errors.Is(err, profile.ErrNotFound) {
			s.log.Warnw("context apply failed, continuing without profile",
				"profile", opts.ProfileID, "error", err)
		}
		out.Text = result.EnhancedPrompt
		out.ContextApplied = result.Applied
	}

	provider := opts.Provider
	if provider == "" {
		provider = s.cfg.LLMProvider
	}
	model := opts.Model
	if model == "" {
		model = s.cfg.EnhanceModel
	}

	enhanced, err := llm.Enhance(ctx, out.Text, domain, llm.EnhanceOptions{
		Provider: provider,
		Model:    model,
		Enabled:  opts.enhanceEnabled(),
	})
	if err != nil {
		s.log.Warnw("prompt enhancement failed, using unenhanced prompt",
			"model", model, "error", err)
	}
	out.Text = enhanced.EnhancedPrompt
	out.Enhanced = enhanced.Enhanced
	out.EnhanceModel = enhanced.Model
	out.Truncated = enhanced.Truncated
	return out
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		promptOptions
		Type string `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	domain := llm.DomainImage
	if req.Type == "video" {
		domain = llm.DomainVideo
	}

	prepared := s.preparePrompt(r.Context(), req.promptOptions, domain)
	writeSuccess(w, http.StatusOK, map[string]any{
		"originalPrompt": prepared.OriginalPrompt,
		"enhancedPrompt": prepared.Text,
		"model":          prepared.EnhanceModel,
		"enhanced":       prepared.Enhanced,
		"truncated":      prepared.Truncated,
		"contextApplied": prepared.ContextApplied,
	})
}

type imageGenRequest struct {
	promptOptions
	Model        string `json:"model"`
	AspectRatio  string `json:"aspectRatio"`
	OutputFormat string `json:"outputFormat"`
	InputImage   string `json:"inputImage"`
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageGenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	prepared := s.preparePrompt(r.Context(), req.promptOptions, llm.DomainImage)
	result, saved, err := s.generateImage(r.Context(), prepared.Text, req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"imageUrl":       saved.PublicURL,
		"localPath":      saved.LocalPath,
		"remoteUrl":      result.URL,
		"model":          result.Model,
		"seed":           result.Seed,
		"prompt":         prepared.Text,
		"originalPrompt": prepared.OriginalPrompt,
		"enhanced":       prepared.Enhanced,
		"contextApplied": prepared.ContextApplied,
	})
}

type videoGenRequest struct {
	promptOptions
	ImageURL    string `json:"imageUrl"`
	AspectRatio string `json:"aspectRatio"`
	Duration    string `json:"duration"`
	VideoStyle  string `json:"videoStyle"`
}

func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req videoGenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	prepared := s.preparePrompt(r.Context(), req.promptOptions, llm.DomainVideo)
	result, saved, err := s.generateVideo(r.Context(), prepared.Text, req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"videoUrl":       saved.PublicURL,
		"localPath":      saved.LocalPath,
		"remoteUrl":      result.URL,
		"requestId":      result.RequestID,
		"duration":       result.Duration,
		"aspectRatio":    result.AspectRatio,
		"videoStyle":     media.VideoStyleOrDefault(req.VideoStyle),
		"prompt":         prepared.Text,
		"originalPrompt": prepared.OriginalPrompt,
		"enhanced":       prepared.Enhanced,
		"contextApplied": prepared.ContextApplied,
	})
}

type completeGenRequest struct {
	promptOptions
	ImageModel   string `json:"imageModel"`
	AspectRatio  string `json:"aspectRatio"`
	OutputFormat string `json:"outputFormat"`
	Duration     string `json:"duration"`
	VideoStyle   string `json:"videoStyle"`
}

// handleGenerateComplete runs the full pipeline: enhance the prompt, generate
// an image, then animate that image into a video. A video-stage failure still
// returns the image with the video error attached, since the image is already
// paid for.
func (s *Server) handleGenerateComplete(w http.ResponseWriter, r *http.Request) {
	var req completeGenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	imagePrompt := s.preparePrompt(r.Context(), req.promptOptions, llm.DomainImage)
	imageResult, imageSaved, err := s.generateImage(r.Context(), imagePrompt.Text, imageGenRequest{
		promptOptions: req.promptOptions,
		Model:         req.ImageModel,
		AspectRatio:   req.AspectRatio,
		OutputFormat:  req.OutputFormat,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	imageBody := map[string]any{
		"imageUrl":  imageSaved.PublicURL,
		"localPath": imageSaved.LocalPath,
		"model":     imageResult.Model,
		"seed":      imageResult.Seed,
		"prompt":    imagePrompt.Text,
	}

	// The video stage reuses the original prompt so the enhancement can be
	// rewritten for motion rather than inheriting image-specific wording.
	videoOpts := req.promptOptions
	videoOpts.ProfileID = "" // usage already recorded in the image stage
	videoPrompt := s.preparePrompt(r.Context(), videoOpts, llm.DomainVideo)

	videoResult, videoSaved, err := s.generateVideo(r.Context(), videoPrompt.Text, videoGenRequest{
		ImageURL:    imageResult.URL,
		AspectRatio: req.AspectRatio,
		Duration:    req.Duration,
		VideoStyle:  req.VideoStyle,
	})
	if err != nil {
		s.log.Warnw("video stage failed, returning image only", "error", err)
		writeSuccess(w, http.StatusOK, map[string]any{
			"image":          imageBody,
			"videoError":     err.Error(),
			"originalPrompt": imagePrompt.OriginalPrompt,
			"contextApplied": imagePrompt.ContextApplied,
		})
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"image": imageBody,
		"video": map[string]any{
			"videoUrl":   videoSaved.PublicURL,
			"localPath":  videoSaved.LocalPath,
			"requestId":  videoResult.RequestID,
			"duration":   videoResult.Duration,
			"videoStyle": media.VideoStyleOrDefault(req.VideoStyle),
			"prompt":     videoPrompt.Text,
		},
		"originalPrompt": imagePrompt.OriginalPrompt,
		"contextApplied": imagePrompt.ContextApplied,
	})
}

// generateImage runs the image client and stores the result under the public
// images folder.
func (s *Server) generateImage(ctx context.Context, prompt string, req imageGenRequest) (media.ImageResult, assets.SavedFile, error) {
	result, err := s.images.Generate(ctx, media.ImageRequest{
		Prompt:       prompt,
		Model:        req.Model,
		AspectRatio:  req.AspectRatio,
		OutputFormat: req.OutputFormat,
		InputImage:   req.InputImage,
	})
	if err != nil {
		return media.ImageResult{}, assets.SavedFile{}, err
	}

	ext := req.OutputFormat
	if ext == "" {
		ext = "png"
	}
	saved, err := s.saver.DownloadAndSave(ctx, result.URL, assets.GenerateFileName("image", ext), "images")
	if err != nil {
		return media.ImageResult{}, assets.SavedFile{}, err
	}
	return result, saved, nil
}

// generateVideo applies the technical style enhancement, runs the video
// client, and stores the result under the public videos folder.
func (s *Server) generateVideo(ctx context.Context, prompt string, req videoGenRequest) (media.VideoResult, assets.SavedFile, error) {
	result, err := s.videos.Generate(ctx, media.VideoRequest{
		Prompt:      media.EnhanceForStyle(prompt, req.VideoStyle),
		ImageURL:    req.ImageURL,
		AspectRatio: req.AspectRatio,
		Duration:    req.Duration,
	})
	if err != nil {
		return media.VideoResult{}, assets.SavedFile{}, err
	}

	saved, err := s.saver.DownloadAndSave(ctx, result.URL, assets.GenerateFileName("video", "mp4"), "videos")
	if err != nil {
		return media.VideoResult{}, assets.SavedFile{}, err
	}
	return result, saved, nil
}
