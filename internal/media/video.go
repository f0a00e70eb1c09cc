package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const falQueueBaseURL = "https://queue.fal.run"

const videoModelPath = "fal-ai/veo3"

// videoPromptLimit is the generation service's hard prompt length cap.
const videoPromptLimit = 500

var (
	validVideoAspectRatios = map[string]bool{"1:1": true, "9:16": true, "16:9": true}
	validVideoDurations    = map[string]bool{"5s": true, "8s": true, "10s": true}
)

// videoStyles maps named motion styles to the technical enhancement appended
// to video prompts. Kept short so the styled prompt stays inside the model's
// character cap.
var videoStyles = map[string]string{
	"cinematic": "smooth camera movement, cinematic lighting",
	"viral":     "dynamic angles, engaging movement",
	"artistic":  "creative transitions, artistic flow",
}

const defaultVideoStyle = "cinematic"

// VideoStyleOrDefault returns style when it names a known video style, else
// the cinematic default.
func VideoStyleOrDefault(style string) string {
	if _, ok := videoStyles[style]; ok {
		return style
	}
	return defaultVideoStyle
}

// EnhanceForStyle appends the named style's technical enhancement to prompt.
// Unknown or empty styles use the cinematic default.
func EnhanceForStyle(prompt, style string) string {
	return prompt + ", " + videoStyles[VideoStyleOrDefault(style)]
}

// Sound and audio-sync references confuse the video model; they are scrubbed
// from prompts before submission.
var (
	soundNoteRe  = regexp.MustCompile(`(?mi)Include sound:.*$`)
	withSoundRe  = regexp.MustCompile(`(?mi)with\s+sound.*$`)
	audioSyncRe  = regexp.MustCompile(`(?mi)audio.*?sync.*$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// VideoClient generates videos through the FAL queue API: submit a request,
// then poll its status until it completes.
type VideoClient struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	log          *zap.SugaredLogger
}

// NewVideoClient builds a VideoClient. A nil logger is replaced with a no-op
// logger.
func NewVideoClient(apiKey string, log *zap.SugaredLogger) *VideoClient {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &VideoClient{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		apiKey:       apiKey,
		baseURL:      falQueueBaseURL,
		pollInterval: 10 * time.Second,
		maxPolls:     30,
		log:          log,
	}
}

// VideoRequest describes one video generation.
type VideoRequest struct {
	Prompt      string
	ImageURL    string // optional base image for image-to-video
	AspectRatio string // 1:1, 9:16, or 16:9; invalid values fall back to 16:9
	Duration    string // 5s, 8s, or 10s; invalid values fall back to 8s
}

// VideoResult carries the generated video location and request metadata.
type VideoResult struct {
	URL          string `json:"videoUrl"`
	RequestID    string `json:"requestId"`
	Duration     string `json:"duration"`
	AspectRatio  string `json:"aspectRatio"`
	PromptLength int    `json:"promptLength"`
	PollAttempts int    `json:"pollAttempts"`
}

type queueSubmitResponse struct {
	RequestID string `json:"request_id"`
}

type queueStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Video  struct {
		URL string `json:"url"`
	} `json:"video"`
}

// PreparePrompt scrubs sound references from a video prompt, collapses
// whitespace, and truncates to the 500-character service limit.
func PreparePrompt(prompt string) string {
	p := soundNoteRe.ReplaceAllString(prompt, "")
	p = withSoundRe.ReplaceAllString(p, "")
	p = audioSyncRe.ReplaceAllString(p, "")
	p = strings.TrimSpace(whitespaceRe.ReplaceAllString(p, " "))
	if len(p) > videoPromptLimit {
		p = p[:videoPromptLimit-3] + "..."
	}
	return p
}

// Generate submits a video request and polls until the queue reports
// completion or failure.
func (c *VideoClient) Generate(ctx context.Context, req VideoRequest) (VideoResult, error) {
	prompt := PreparePrompt(req.Prompt)

	aspect := req.AspectRatio
	if !validVideoAspectRatios[aspect] {
		aspect = "16:9"
	}
	duration := req.Duration
	if !validVideoDurations[duration] {
		duration = "8s"
	}

	body := map[string]any{
		"prompt":         prompt,
		"generate_audio": true,
	}
	if aspect != "16:9" {
		body["aspect_ratio"] = aspect
	}
	if n, err := strconv.Atoi(strings.TrimSuffix(duration, "s")); err == nil && n != 8 {
		body["duration"] = n
	}
	if req.ImageURL != "" {
		if _, err := url.ParseRequestURI(req.ImageURL); err == nil {
			body["image_url"] = req.ImageURL
		} else {
			c.log.Warnw("invalid base image URL, proceeding without it", "url", req.ImageURL)
		}
	}

	c.log.Infow("generating video",
		"aspect_ratio", aspect, "duration", duration, "prompt_length", len(prompt))

	requestID, err := c.submit(ctx, body)
	if err != nil {
		return VideoResult{}, err
	}

	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		status, err := c.status(ctx, requestID)
		if err != nil {
			return VideoResult{}, err
		}

		switch status.Status {
		case "COMPLETED":
			if status.Video.URL == "" {
				return VideoResult{}, fmt.Errorf("media: video completed but no URL received")
			}
			return VideoResult{
				URL:          status.Video.URL,
				RequestID:    requestID,
				Duration:     duration,
				AspectRatio:  aspect,
				PromptLength: len(prompt),
				PollAttempts: attempt,
			}, nil
		case "FAILED":
			reason := status.Error
			if reason == "" {
				reason = "unknown error"
			}
			return VideoResult{}, fmt.Errorf("media: video generation failed: %s", reason)
		}

		// IN_QUEUE, IN_PROGRESS, and unknown states all keep polling.
		if attempt < c.maxPolls {
			if err := sleepCtx(ctx, c.pollInterval); err != nil {
				return VideoResult{}, err
			}
		}
	}
	return VideoResult{}, fmt.Errorf("media: video generation timed out after %d polls", c.maxPolls)
}

func (c *VideoClient) submit(ctx context.Context, body map[string]any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("media: marshal video request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, videoModelPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("media: create video request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media: submit video request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("media: video submit returned %s: %s", resp.Status, msg)
	}

	var submit queueSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submit); err != nil {
		return "", fmt.Errorf("media: decode submit response: %w", err)
	}
	if submit.RequestID == "" {
		return "", fmt.Errorf("media: no request_id received from video submit")
	}
	return submit.RequestID, nil
}

func (c *VideoClient) status(ctx context.Context, requestID string) (*queueStatusResponse, error) {
	endpoint := fmt.Sprintf("%s/%s/requests/%s", c.baseURL, videoModelPath, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("media: create status request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: video status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("media: video status returned %s", resp.Status)
	}

	var status queueStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("media: decode status response: %w", err)
	}
	return &status, nil
}
