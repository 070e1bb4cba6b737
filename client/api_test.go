package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colsephiroth/storyreel/common"
)

func TestAPISubmitGenerationJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/base/api/initial_generator/generate/" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(common.AuthHeader); got != "Token secret" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var body common.InitialGenerationCreate
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.ProjectID != "p1" || body.Prompt != "a bus" {
			t.Fatalf("unexpected body %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "gen-1", "status": "queued", "initial_video_url": nil})
	}))
	defer server.Close()

	api, err := NewAPI(server.URL+"/base", WithToken("secret"))
	if err != nil {
		t.Fatalf("NewAPI returned error: %v", err)
	}
	job, err := api.SubmitGenerationJob(context.Background(), "p1", "a bus")
	if err != nil {
		t.Fatalf("SubmitGenerationJob returned error: %v", err)
	}
	if job.ID != "gen-1" || job.Status != "queued" || job.InitialVideoURL != nil {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestAPIFetchGenerationStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/initial_generator/gen-1/check-status/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                "gen-1",
			"status":            "completed",
			"initial_video_url": "https://cdn.test/clip.mp4",
			"prompt":            "a bus",
		})
	}))
	defer server.Close()

	api, _ := NewAPI(server.URL)
	job, err := api.FetchGenerationStatus(context.Background(), "gen-1")
	if err != nil {
		t.Fatalf("FetchGenerationStatus returned error: %v", err)
	}
	if job.VideoURL() != "https://cdn.test/clip.mp4" || job.PromptText() != "a bus" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestAPIHTTPErrorIsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(common.ErrorResponse{Detail: "DeepSeek error: timeout"})
	}))
	defer server.Close()

	api, _ := NewAPI(server.URL)
	_, err := api.Suggestions(context.Background(), "p1", "")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusBadGateway || reqErr.Message != "DeepSeek error: timeout" {
		t.Fatalf("unexpected request error %+v", reqErr)
	}
}

func TestAPITransportErrorIsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	api, _ := NewAPI(url)
	_, err := api.FetchGenerationStatus(context.Background(), "gen-1")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != 0 || reqErr.Err == nil {
		t.Fatalf("expected a transport failure, got %+v", reqErr)
	}
}

func TestAPISuggestionsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/p1/suggest-continuations/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("prompt"); got != "red bus" {
			t.Fatalf("unexpected prompt %q", got)
		}
		_ = json.NewEncoder(w).Encode(common.SuggestionsResponse{Suggestions: []string{"a", "b"}})
	}))
	defer server.Close()

	api, _ := NewAPI(server.URL)
	got, err := api.Suggestions(context.Background(), "p1", "  red bus ")
	if err != nil {
		t.Fatalf("Suggestions returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected suggestions %v", got)
	}
}

func TestNewAPIRejectsRelativeURL(t *testing.T) {
	if _, err := NewAPI("api/"); err == nil {
		t.Fatal("expected relative base url to be rejected")
	}
}

type failingSuggestions struct{}

func (failingSuggestions) Suggestions(context.Context, string, string) ([]string, error) {
	return nil, errors.New("backend down")
}

func TestFetchSuggestionsFallsBack(t *testing.T) {
	got, err := FetchSuggestions(context.Background(), failingSuggestions{}, "p1", "")
	if err == nil {
		t.Fatal("expected the error to be returned")
	}
	if len(got) != len(FallbackSuggestions) || got[0] != FallbackSuggestions[0] {
		t.Fatalf("unexpected fallback %v", got)
	}
	got[0] = "mutated"
	if FallbackSuggestions[0] == "mutated" {
		t.Fatal("fallback list was shared with the caller")
	}
}
