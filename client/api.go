package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colsephiroth/storyreel/common"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBodyBytes  = 512
)

// GenerationAPI is the backend surface the Reconciler needs.
// FetchGenerationStatus must be safe to retry.
type GenerationAPI interface {
	SubmitGenerationJob(ctx context.Context, projectID, prompt string) (common.InitialGeneration, error)
	FetchGenerationStatus(ctx context.Context, jobID string) (common.InitialGeneration, error)
}

// API is the HTTP client for the generator backend. Every failure it returns
// is a *RequestError.
type API struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

type APIOption func(a *API)

func WithHTTPClient(h *http.Client) APIOption {
	return func(a *API) {
		if h != nil {
			a.httpClient = h
		}
	}
}

func WithToken(token string) APIOption {
	return func(a *API) {
		a.token = strings.TrimSpace(token)
	}
}

func WithAPILogger(l zerolog.Logger) APIOption {
	return func(a *API) {
		a.logger = l
	}
}

func NewAPI(baseURL string, options ...APIOption) (*API, error) {
	burl, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if burl.Scheme == "" || burl.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(burl.Path, "/") {
		burl.Path += "/"
	}

	a := &API{
		baseURL:    burl,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     zerolog.Nop(),
	}
	for _, option := range options {
		option(a)
	}
	return a, nil
}

func (a *API) SubmitGenerationJob(ctx context.Context, projectID, prompt string) (common.InitialGeneration, error) {
	var job common.InitialGeneration
	body := common.InitialGenerationCreate{ProjectID: projectID, Prompt: prompt}
	err := a.do(ctx, http.MethodPost, common.PathInitialGenerationCreate, nil, body, &job)
	return job, err
}

func (a *API) FetchGenerationStatus(ctx context.Context, jobID string) (common.InitialGeneration, error) {
	var job common.InitialGeneration
	err := a.do(ctx, http.MethodGet, common.InitialGenerationStatusPath(jobID), nil, nil, &job)
	return job, err
}

func (a *API) ListProjects(ctx context.Context) ([]common.Project, error) {
	var dtos []common.ProjectDTO
	if err := a.do(ctx, http.MethodGet, common.PathProjects, nil, nil, &dtos); err != nil {
		return nil, err
	}
	projects := make([]common.Project, 0, len(dtos))
	for _, dto := range dtos {
		projects = append(projects, dto.Project())
	}
	return projects, nil
}

func (a *API) CreateProject(ctx context.Context, name string) (common.Project, error) {
	var dto common.ProjectDTO
	err := a.do(ctx, http.MethodPost, common.PathProjects, nil, common.ProjectCreate{Name: name}, &dto)
	return dto.Project(), err
}

func (a *API) GetProject(ctx context.Context, id string) (common.Project, error) {
	var dto common.ProjectDTO
	err := a.do(ctx, http.MethodGet, common.ProjectPath(id), nil, nil, &dto)
	return dto.Project(), err
}

func (a *API) RenameProject(ctx context.Context, id, name string) (common.Project, error) {
	var dto common.ProjectDTO
	err := a.do(ctx, http.MethodPatch, common.ProjectPath(id), nil, common.ProjectCreate{Name: name}, &dto)
	return dto.Project(), err
}

func (a *API) DeleteProject(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, common.ProjectPath(id), nil, nil, nil)
}

// Suggestions asks for short story continuations. An empty prompt lets the
// backend fall back to the project's initial prompt.
func (a *API) Suggestions(ctx context.Context, projectID, prompt string) ([]string, error) {
	var query url.Values
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		query = url.Values{"prompt": {prompt}}
	}
	var res common.SuggestionsResponse
	if err := a.do(ctx, http.MethodGet, common.ProjectSuggestPath(projectID), query, nil, &res); err != nil {
		return nil, err
	}
	return res.Suggestions, nil
}

func (a *API) ListSegments(ctx context.Context, projectID string) ([]common.StorySegment, error) {
	var segments []common.StorySegment
	query := url.Values{"project_id": {projectID}}
	err := a.do(ctx, http.MethodGet, common.PathGenerator, query, nil, &segments)
	return segments, err
}

func (a *API) ContinueStory(ctx context.Context, projectID, nextPrompt string) (common.StorySegment, error) {
	var segment common.StorySegment
	body := common.ContinueRequest{ProjectID: projectID, NextPrompt: nextPrompt}
	err := a.do(ctx, http.MethodPost, common.PathGeneratorContinue, nil, body, &segment)
	return segment, err
}

func (a *API) DeleteLastSegment(ctx context.Context, projectID string) error {
	return a.do(ctx, http.MethodPost, common.PathGeneratorDeleteLast, nil, common.ProjectRef{ProjectID: projectID}, nil)
}

func (a *API) Assemble(ctx context.Context, projectID string) (common.AssembleResponse, error) {
	var res common.AssembleResponse
	err := a.do(ctx, http.MethodPost, common.PathGeneratorAssemble, nil, common.ProjectRef{ProjectID: projectID}, &res)
	return res, err
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return &RequestError{Method: method, URL: path, Err: err}
	}
	if query != nil {
		ref.RawQuery = query.Encode()
	}
	target := a.baseURL.ResolveReference(ref).String()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Method: method, URL: target, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &RequestError{Method: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set(common.AuthHeader, "Token "+a.token)
	}

	started := time.Now()
	res, err := a.httpClient.Do(req)
	if err != nil {
		return &RequestError{Method: method, URL: target, Err: err}
	}
	defer res.Body.Close()

	a.logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", res.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	if res.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		return &RequestError{
			Method:     method,
			URL:        target,
			StatusCode: res.StatusCode,
			Message:    errorMessage(snippet),
		}
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &RequestError{Method: method, URL: target, StatusCode: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload common.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(body))
}

var _ GenerationAPI = (*API)(nil)
