package media

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestVideoClient(url string) *VideoClient {
	c := NewVideoClient("test-key", nil)
	c.baseURL = url
	c.pollInterval = time.Millisecond
	return c
}

func TestPreparePrompt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain prompt untouched",
			in:   "a valley at dawn",
			want: "a valley at dawn",
		},
		{
			name: "sound note line removed",
			in:   "a valley at dawn. Include sound: birdsong and wind",
			want: "a valley at dawn.",
		},
		{
			name: "with sound clause removed",
			in:   "a busy street with sound of traffic",
			want: "a busy street",
		},
		{
			name: "audio sync reference removed",
			in:   "dancers moving, audio perfectly synced to the beat",
			want: "dancers moving,",
		},
		{
			name: "whitespace collapsed",
			in:   "a   valley\n\n  at   dawn",
			want: "a valley at dawn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreparePrompt(tt.in); got != tt.want {
				t.Errorf("PreparePrompt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnhanceForStyle(t *testing.T) {
	tests := []struct {
		style string
		want  string
	}{
		{"cinematic", "a valley, smooth camera movement, cinematic lighting"},
		{"viral", "a valley, dynamic angles, engaging movement"},
		{"artistic", "a valley, creative transitions, artistic flow"},
		{"", "a valley, smooth camera movement, cinematic lighting"},
		{"no-such-style", "a valley, smooth camera movement, cinematic lighting"},
	}

	for _, tt := range tests {
		if got := EnhanceForStyle("a valley", tt.style); got != tt.want {
			t.Errorf("EnhanceForStyle(%q) = %q, want %q", tt.style, got, tt.want)
		}
	}
}

func TestVideoStyleOrDefault(t *testing.T) {
	if got := VideoStyleOrDefault("viral"); got != "viral" {
		t.Errorf("VideoStyleOrDefault(viral) = %q", got)
	}
	if got := VideoStyleOrDefault("bogus"); got != "cinematic" {
		t.Errorf("VideoStyleOrDefault(bogus) = %q, want cinematic", got)
	}
}

func TestPreparePromptTruncates(t *testing.T) {
	long := strings.Repeat("x", 600)
	got := PreparePrompt(long)
	if len(got) != videoPromptLimit {
		t.Errorf("length = %d, want %d", len(got), videoPromptLimit)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated prompt should end with ellipsis")
	}
}

func TestVideoGenerate(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Key test-key" {
			t.Errorf("Authorization = %q", got)
		}
		switch {
		case r.Method == http.MethodPost:
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if body["generate_audio"] != true {
				t.Errorf("generate_audio = %v", body["generate_audio"])
			}
			// Defaults are omitted from the request body.
			if _, ok := body["aspect_ratio"]; ok {
				t.Error("default aspect ratio should be omitted")
			}
			if _, ok := body["duration"]; ok {
				t.Error("default duration should be omitted")
			}
			json.NewEncoder(w).Encode(map[string]any{"request_id": "req-1"})
		case r.Method == http.MethodGet:
			polls++
			if polls < 2 {
				json.NewEncoder(w).Encode(map[string]any{"status": "IN_PROGRESS"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"status": "COMPLETED",
				"video":  map[string]any{"url": "https://cdn.example.com/clip.mp4"},
			})
		}
	}))
	defer srv.Close()

	result, err := newTestVideoClient(srv.URL).Generate(t.Context(), VideoRequest{Prompt: "a valley"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if result.URL != "https://cdn.example.com/clip.mp4" {
		t.Errorf("URL = %q", result.URL)
	}
	if result.AspectRatio != "16:9" || result.Duration != "8s" {
		t.Errorf("defaults = %s / %s, want 16:9 / 8s", result.AspectRatio, result.Duration)
	}
	if result.PollAttempts != 2 {
		t.Errorf("poll attempts = %d, want 2", result.PollAttempts)
	}
}

func TestVideoGenerateNonDefaultSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["aspect_ratio"] != "9:16" {
				t.Errorf("aspect_ratio = %v, want 9:16", body["aspect_ratio"])
			}
			if body["duration"] != float64(5) {
				t.Errorf("duration = %v, want 5", body["duration"])
			}
			if body["image_url"] != "https://example.com/base.png" {
				t.Errorf("image_url = %v", body["image_url"])
			}
			json.NewEncoder(w).Encode(map[string]any{"request_id": "req-2"})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"status": "COMPLETED",
				"video":  map[string]any{"url": "https://cdn.example.com/vertical.mp4"},
			})
		}
	}))
	defer srv.Close()

	_, err := newTestVideoClient(srv.URL).Generate(t.Context(), VideoRequest{
		Prompt:      "a valley",
		ImageURL:    "https://example.com/base.png",
		AspectRatio: "9:16",
		Duration:    "5s",
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
}

func TestVideoGenerateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			json.NewEncoder(w).Encode(map[string]any{"request_id": "req-3"})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"status": "FAILED", "error": "quota exceeded"})
		}
	}))
	defer srv.Close()

	_, err := newTestVideoClient(srv.URL).Generate(t.Context(), VideoRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v, want failure reason surfaced", err)
	}
}

func TestVideoGenerateInvalidBaseImageDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["image_url"]; ok {
				t.Error("invalid image_url should be dropped")
			}
			json.NewEncoder(w).Encode(map[string]any{"request_id": "req-4"})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"status": "COMPLETED",
				"video":  map[string]any{"url": "https://cdn.example.com/ok.mp4"},
			})
		}
	}))
	defer srv.Close()

	_, err := newTestVideoClient(srv.URL).Generate(t.Context(), VideoRequest{
		Prompt:   "x",
		ImageURL: "::not a url::",
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
}
