// Package media wraps the external generation services: image generation via
// the Replicate predictions API and video generation via the FAL queue API.
// Both are create-then-poll HTTP clients; neither carries retry logic beyond
// the polling loop itself.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const replicateBaseURL = "https://api.replicate.com/v1"

// imageModels maps the named generation targets exposed by the API to
// Replicate model slugs.
var imageModels = map[string]string{
	"kontext-max": "black-forest-labs/flux-kontext-max",
	"kontext-pro": "black-forest-labs/flux-kontext-pro",
	"pro-ultra":   "black-forest-labs/flux-1.1-pro-ultra",
	"alexseis":    "black-forest-labs/flux-dev",
}

const defaultImageModel = "kontext-max"

// ImageClient generates images through Replicate.
type ImageClient struct {
	httpClient   *http.Client
	apiToken     string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	log          *zap.SugaredLogger
}

// NewImageClient builds an ImageClient. A nil logger is replaced with a
// no-op logger.
func NewImageClient(apiToken string, log *zap.SugaredLogger) *ImageClient {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ImageClient{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		apiToken:     apiToken,
		baseURL:      replicateBaseURL,
		pollInterval: 2 * time.Second,
		maxPolls:     60,
		log:          log,
	}
}

// ImageRequest describes one image generation.
type ImageRequest struct {
	Prompt       string
	Model        string // named target, e.g. "kontext-max"; empty uses the default
	AspectRatio  string
	OutputFormat string
	InputImage   string // optional source image URL for edit-style generation
}

// ImageResult carries the generated image location.
type ImageResult struct {
	URL   string `json:"imageUrl"`
	Model string `json:"model"`
	Seed  int    `json:"seed"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Generate creates a prediction and polls until it settles. The returned
// error wraps the remote failure reason when the prediction fails.
func (c *ImageClient) Generate(ctx context.Context, req ImageRequest) (ImageResult, error) {
	model := req.Model
	if model == "" {
		model = defaultImageModel
	}
	slug, ok := imageModels[model]
	if !ok {
		return ImageResult{}, fmt.Errorf("media: unknown image model %q", model)
	}

	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}
	format := req.OutputFormat
	if format == "" {
		format = "png"
	}

	seed := rand.Intn(1000000)
	input := map[string]any{
		"prompt":              req.Prompt,
		"num_inference_steps": 28,
		"guidance_scale":      3.5,
		"num_outputs":         1,
		"aspect_ratio":        aspect,
		"output_format":       format,
		"output_quality":      100,
		"seed":                seed,
	}
	if req.InputImage != "" {
		input["image"] = req.InputImage
	}

	c.log.Infow("generating image", "model", model, "aspect_ratio", aspect, "format", format)

	pred, err := c.createPrediction(ctx, slug, input)
	if err != nil {
		return ImageResult{}, err
	}

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		switch pred.Status {
		case "succeeded":
			url, err := firstOutputURL(pred.Output)
			if err != nil {
				return ImageResult{}, err
			}
			return ImageResult{URL: url, Model: model, Seed: seed}, nil
		case "failed", "canceled":
			return ImageResult{}, fmt.Errorf("media: image generation %s: %s", pred.Status, pred.Error)
		}

		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return ImageResult{}, err
		}
		pred, err = c.getPrediction(ctx, pred.ID)
		if err != nil {
			return ImageResult{}, err
		}
	}
	return ImageResult{}, fmt.Errorf("media: image generation timed out after %d polls", c.maxPolls)
}

func (c *ImageClient) createPrediction(ctx context.Context, slug string, input map[string]any) (*predictionResponse, error) {
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("media: marshal prediction request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("media: create prediction request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	return c.doPrediction(req)
}

func (c *ImageClient) getPrediction(ctx context.Context, id string) (*predictionResponse, error) {
	url := fmt.Sprintf("%s/predictions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("media: create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	return c.doPrediction(req)
}

func (c *ImageClient) doPrediction(req *http.Request) (*predictionResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: replicate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("media: replicate returned %s: %s", resp.Status, msg)
	}

	var pred predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("media: decode prediction: %w", err)
	}
	return &pred, nil
}

// firstOutputURL extracts the image URL from a prediction output, which is
// either a bare string or an array of strings depending on the model.
func firstOutputURL(output json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(output, &single); err == nil && single != "" {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(output, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", fmt.Errorf("media: prediction succeeded but produced no output URL")
}

// sleepCtx sleeps for d or returns early with the context error.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
