package common

import "time"

// AuthHeader carries the optional API token, formatted as "Token <value>".
const AuthHeader = "Authorization"

// InitialGenerationCreate is the body of an initial generation request.
type InitialGenerationCreate struct {
	ProjectID string `json:"project_id"`
	Prompt    string `json:"prompt"`
}

// InitialGeneration is the backend's view of an initial clip generation job.
// Status is the raw backend value; run it through Normalize before reasoning
// about it.
type InitialGeneration struct {
	ID              string    `json:"id"`
	Project         string    `json:"project"`
	Prompt          *string   `json:"prompt"`
	JobID           string    `json:"job_id"`
	InitialVideoURL *string   `json:"initial_video_url"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// VideoURL returns the result url, or "" while none is attached.
func (g InitialGeneration) VideoURL() string {
	if g.InitialVideoURL == nil {
		return ""
	}
	return *g.InitialVideoURL
}

// PromptText returns the echoed prompt, or "" when the backend omitted it.
func (g InitialGeneration) PromptText() string {
	if g.Prompt == nil {
		return ""
	}
	return *g.Prompt
}

type ProjectDTO struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	GenerationStatus string    `json:"generation_status,omitempty"`
	InitialVideoURL  *string   `json:"initial_video_url,omitempty"`
	Prompt           *string   `json:"prompt,omitempty"`
}

type Project struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	GenerationStatus string    `json:"generationStatus,omitempty"`
	InitialVideoURL  string    `json:"initialVideoUrl,omitempty"`
	Prompt           string    `json:"prompt,omitempty"`
}

func (dto ProjectDTO) Project() Project {
	p := Project{
		ID:               dto.ID,
		Name:             dto.Name,
		CreatedAt:        dto.CreatedAt,
		UpdatedAt:        dto.UpdatedAt,
		GenerationStatus: dto.GenerationStatus,
	}
	if dto.InitialVideoURL != nil {
		p.InitialVideoURL = *dto.InitialVideoURL
	}
	if dto.Prompt != nil {
		p.Prompt = *dto.Prompt
	}
	return p
}

type ProjectCreate struct {
	Name string `json:"name"`
}

// StorySegment is one continuation of a project's story, ordered by Position.
type StorySegment struct {
	ID               string         `json:"id"`
	Project          string         `json:"project"`
	Position         int            `json:"position"`
	PreviousVideoURL string         `json:"previous_video_url"`
	PreviousPrompt   string         `json:"previous_prompt"`
	UsedPrompt       string         `json:"used_prompt"`
	NewVideoURL      string         `json:"new_video_url"`
	CumulativePrompt string         `json:"cumulative_prompt"`
	JobSetID         *string        `json:"job_set_id,omitempty"`
	FrameImageURL    *string        `json:"frame_image_url,omitempty"`
	Meta             map[string]any `json:"meta,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type ContinueRequest struct {
	ProjectID  string `json:"project_id"`
	NextPrompt string `json:"next_prompt"`
}

// ProjectRef is the body of the delete-last and assemble calls.
type ProjectRef struct {
	ProjectID string `json:"project_id"`
}

type AssembleResponse struct {
	ProjectID    string `json:"project_id"`
	AssembledURL string `json:"assembled_url"`
}

type SuggestionsResponse struct {
	ProjectID   string   `json:"project_id"`
	Prompt      string   `json:"prompt"`
	Suggestions []string `json:"suggestions"`
}

// ErrorResponse is the JSON error shape returned by the backend.
type ErrorResponse struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type SceneStatus string

const (
	SceneQueued     SceneStatus = "queued"
	SceneGenerating SceneStatus = "generating"
	SceneReady      SceneStatus = "ready"
	SceneError      SceneStatus = "error"
)

// Scene is a playable unit of the storyboard.
type Scene struct {
	ID          string      `json:"id"`
	Prompt      string      `json:"prompt"`
	ClipURL     string      `json:"clipUrl,omitempty"`
	ThumbURL    string      `json:"thumbUrl,omitempty"`
	DurationSec int         `json:"durationSec,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	Status      SceneStatus `json:"status"`
	ErrorMsg    string      `json:"errorMsg,omitempty"`
}
