package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/promptforge/internal/assets"
	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/enhance"
	"github.com/promptforge/promptforge/internal/llm"
	"github.com/promptforge/promptforge/internal/media"
	"github.com/promptforge/promptforge/internal/profile"
)

type fakeImageGen struct {
	result media.ImageResult
	err    error
	got    media.ImageRequest
}

func (f *fakeImageGen) Generate(_ context.Context, req media.ImageRequest) (media.ImageResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeVideoGen struct {
	result media.VideoResult
	err    error
	got    media.VideoRequest
}

func (f *fakeVideoGen) Generate(_ context.Context, req media.VideoRequest) (media.VideoResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeSaver struct{}

func (fakeSaver) DownloadAndSave(_ context.Context, fileURL, fileName, folder string) (assets.SavedFile, error) {
	return assets.SavedFile{
		LocalPath: "/tmp/" + folder + "/" + fileName,
		PublicURL: "http://localhost:8080/" + folder + "/" + fileName,
	}, nil
}

type testEnv struct {
	srv    *httptest.Server
	store  *profile.Store
	images *fakeImageGen
	videos *fakeVideoGen
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := profile.NewStore(profile.NewFileStorage(t.TempDir()), nil)
	require.NoError(t, store.Initialize())

	images := &fakeImageGen{result: media.ImageResult{URL: "https://cdn.example.com/img.png", Model: "kontext-max", Seed: 42}}
	videos := &fakeVideoGen{result: media.VideoResult{URL: "https://cdn.example.com/clip.mp4", RequestID: "req-1", Duration: "8s", AspectRatio: "16:9"}}

	cfg := config.FromEnv()
	cfg.CORSOrigins = []string{"http://localhost:3000"}

	s := New(store, enhance.NewEnhancer(store, nil), images, videos, fakeSaver{}, cfg, nil)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: store, images: images, videos: videos}
}

// stubEnhancer replaces the LLM provider factory with a canned response for
// the duration of a test.
func stubEnhancer(t *testing.T, response string) {
	t.Helper()
	orig := llm.NewProvider
	llm.NewProvider = func(providerName, model string) (llm.Provider, error) {
		return stubProvider(response), nil
	}
	t.Cleanup(func() { llm.NewProvider = orig })
}

type stubProvider string

func (s stubProvider) Complete(context.Context, string, string, int, float64) (string, error) {
	return string(s), nil
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (e *testEnv) createProfile(t *testing.T, name string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/context-profiles", map[string]any{
		"name": name,
		"context": map[string]any{
			"user_preferences": map[string]any{
				"style": "cyberpunk",
				"avoid": []string{"blurry"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["profile"].(map[string]any)["profile"].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestProfileCRUD(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(t, "Neon City")

	// Get
	resp, body := env.do(t, http.MethodGet, "/api/context-profiles/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	// List
	resp, body = env.do(t, http.MethodGet, "/api/context-profiles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	// Update bumps the version
	resp, body = env.do(t, http.MethodPut, "/api/context-profiles/"+id, map[string]any{
		"context": map[string]any{
			"user_preferences": map[string]any{"mood": "gritty"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	meta := body["profile"].(map[string]any)["profile"].(map[string]any)
	assert.Equal(t, "1.0.1", meta["version"])

	// Delete
	resp, _ = env.do(t, http.MethodDelete, "/api/context-profiles/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/context-profiles/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestProfileNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/context-profiles/no_such", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "no_such")

	resp, _ = env.do(t, http.MethodDelete, "/api/context-profiles/no_such", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/api/context-profiles", map[string]any{
		"name": "No Context",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestApplyProfile(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(t, "Apply Me")

	resp, body := env.do(t, http.MethodPost, "/api/context-profiles/"+id+"/apply", map[string]any{
		"prompt": "a street market",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a street market, cyberpunk style", body["enhancedPrompt"])
	assert.Equal(t, "a street market", body["originalPrompt"])
	assert.Equal(t, true, body["contextApplied"])
}

func TestApplyProfileRequiresPrompt(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(t, "Empty Prompt")

	resp, _ := env.do(t, http.MethodPost, "/api/context-profiles/"+id+"/apply", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScoreProfile(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(t, "Scored")

	resp, body := env.do(t, http.MethodPost, "/api/context-profiles/"+id+"/score", map[string]any{
		"prompt": "a blurry cyberpunk alley",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	compat := body["compatibility"].(map[string]any)
	assert.Equal(t, float64(5), compat["score"])
	assert.Len(t, compat["conflicts"], 1)
}

func TestRecordSuccess(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(t, "Successful")

	resp, body := env.do(t, http.MethodPost, "/api/context-profiles/"+id+"/success", map[string]any{
		"prompt":  "a great render",
		"quality": 9,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["recorded"])

	p, err := env.store.Load(id)
	require.NoError(t, err)
	require.Len(t, p.Memory.SuccessfulPrompts, 1)
	assert.Equal(t, 9, p.Memory.SuccessfulPrompts[0].ResultQuality)
}

func TestEnhanceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	stubEnhancer(t, "an exquisitely detailed street market")

	resp, body := env.do(t, http.MethodPost, "/api/enhance", map[string]any{
		"prompt": "a street market",
		"type":   "image",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "an exquisitely detailed street market", body["enhancedPrompt"])
	assert.Equal(t, "a street market", body["originalPrompt"])
	assert.Equal(t, true, body["enhanced"])
}

func TestEnhanceEndpointWithProfile(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(t, "Enhance Ctx")
	stubEnhancer(t, "stubbed")

	resp, body := env.do(t, http.MethodPost, "/api/enhance", map[string]any{
		"prompt":    "a street market",
		"profileId": id,
		"enhance":   false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// Enhancement off, context on: only the profile clauses are added.
	assert.Equal(t, "a street market, cyberpunk style", body["enhancedPrompt"])
	assert.Equal(t, true, body["contextApplied"])
}

func TestGenerateImage(t *testing.T) {
	env := newTestEnv(t)
	stubEnhancer(t, "a cinematic fox portrait")

	resp, body := env.do(t, http.MethodPost, "/api/generate-image", map[string]any{
		"prompt": "a fox",
		"model":  "kontext-max",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["imageUrl"], "http://localhost:8080/images/")
	assert.Equal(t, "kontext-max", body["model"])
	assert.Equal(t, "a cinematic fox portrait", env.images.got.Prompt)
}

func TestGenerateImageFailure(t *testing.T) {
	env := newTestEnv(t)
	stubEnhancer(t, "whatever")
	env.images.err = fmt.Errorf("media: image generation failed: boom")

	resp, body := env.do(t, http.MethodPost, "/api/generate-image", map[string]any{
		"prompt": "a fox",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestGenerateVideo(t *testing.T) {
	env := newTestEnv(t)
	stubEnhancer(t, "a sweeping drone shot of a valley")

	resp, body := env.do(t, http.MethodPost, "/api/generate-video", map[string]any{
		"prompt":      "a valley",
		"aspectRatio": "16:9",
		"duration":    "8s",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["videoUrl"], "http://localhost:8080/videos/")
	assert.Equal(t, "req-1", body["requestId"])
	// The cinematic style enhancement is appended by default.
	assert.Equal(t, "a sweeping drone shot of a valley, smooth camera movement, cinematic lighting",
		env.videos.got.Prompt)
	assert.Equal(t, "cinematic", body["videoStyle"])
}

func TestGenerateVideoStyle(t *testing.T) {
	env := newTestEnv(t)
	stubEnhancer(t, "a sweeping drone shot of a valley")

	resp, body := env.do(t, http.MethodPost, "/api/generate-video", map[string]any{
		"prompt":     "a valley",
		"videoStyle": "viral",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a sweeping drone shot of a valley, dynamic angles, engaging movement",
		env.videos.got.Prompt)
	assert.Equal(t, "viral", body["videoStyle"])
}

func TestGenerateComplete(t *testing.T) {
	env := newTestEnv(t)
	stubEnhancer(t, "enhanced prompt")

	resp, body := env.do(t, http.MethodPost, "/api/generate-complete", map[string]any{
		"prompt": "a fox",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["image"])
	assert.NotNil(t, body["video"])
	// The video stage animates the freshly generated image.
	assert.Equal(t, "https://cdn.example.com/img.png", env.videos.got.ImageURL)
	assert.Contains(t, env.videos.got.Prompt, "smooth camera movement, cinematic lighting")
}

func TestGenerateCompletePartialFailure(t *testing.T) {
	env := newTestEnv(t)
	stubEnhancer(t, "enhanced prompt")
	env.videos.err = fmt.Errorf("media: video generation timed out after 30 polls")

	resp, body := env.do(t, http.MethodPost, "/api/generate-complete", map[string]any{
		"prompt": "a fox",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["image"])
	assert.Contains(t, body["videoError"], "timed out")
	assert.Nil(t, body["video"])
}
