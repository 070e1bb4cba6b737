package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/colsephiroth/storyreel/common"
)

var (
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrNoScenes           = errors.New("no scenes to remove")
	ErrInitialSceneLocked = errors.New("the initial scene cannot be removed")
	ErrTimelineBusy       = errors.New("another scene operation is in progress")
)

type SegmentsAPI interface {
	ListSegments(ctx context.Context, projectID string) ([]common.StorySegment, error)
	ContinueStory(ctx context.Context, projectID, nextPrompt string) (common.StorySegment, error)
	DeleteLastSegment(ctx context.Context, projectID string) error
}

// Timeline is a project's ordered list of scenes: the initial clip, when there
// is one, followed by every story segment.
type Timeline struct {
	api       SegmentsAPI
	projectID string
	initial   *common.Scene

	mu     sync.Mutex
	scenes []common.Scene
	busy   bool
}

func NewTimeline(api SegmentsAPI, projectID, initialVideoURL, initialPrompt string) *Timeline {
	t := &Timeline{api: api, projectID: projectID}
	if projectID != "" && initialVideoURL != "" {
		prompt := initialPrompt
		if prompt == "" {
			prompt = "Initial prompt"
		}
		t.initial = &common.Scene{
			ID:        InitialSceneID(projectID),
			Prompt:    prompt,
			CreatedAt: time.Now().UTC(),
			Status:    common.SceneReady,
			ClipURL:   initialVideoURL,
		}
	}
	return t
}

func sceneFromSegment(seg common.StorySegment) common.Scene {
	prompt := seg.UsedPrompt
	if prompt == "" {
		prompt = "(no prompt)"
	}
	return common.Scene{
		ID:        seg.ID,
		Prompt:    prompt,
		CreatedAt: seg.CreatedAt,
		Status:    common.SceneReady,
		ClipURL:   seg.NewVideoURL,
	}
}

// Reload replaces the scenes with what the backend currently holds.
func (t *Timeline) Reload(ctx context.Context) error {
	segments, err := t.api.ListSegments(ctx, t.projectID)
	if err != nil {
		return fmt.Errorf("list segments: %w", err)
	}
	slices.SortFunc(segments, func(a, b common.StorySegment) int { return a.Position - b.Position })

	scenes := make([]common.Scene, 0, len(segments)+1)
	if t.initial != nil {
		scenes = append(scenes, *t.initial)
	}
	for _, seg := range segments {
		scenes = append(scenes, sceneFromSegment(seg))
	}

	t.mu.Lock()
	t.scenes = scenes
	t.mu.Unlock()
	return nil
}

func (t *Timeline) Scenes() []common.Scene {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.scenes)
}

func (t *Timeline) Last() (common.Scene, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.scenes) == 0 {
		return common.Scene{}, false
	}
	return t.scenes[len(t.scenes)-1], true
}

func (t *Timeline) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// GenerateNext continues the story with prompt and appends the new scene.
func (t *Timeline) GenerateNext(ctx context.Context, prompt string) (common.Scene, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return common.Scene{}, ErrEmptyPrompt
	}
	if err := t.acquire(); err != nil {
		return common.Scene{}, err
	}
	defer t.release()

	seg, err := t.api.ContinueStory(ctx, t.projectID, prompt)
	if err != nil {
		return common.Scene{}, fmt.Errorf("continue story: %w", err)
	}
	scene := sceneFromSegment(seg)

	t.mu.Lock()
	t.scenes = append(t.scenes, scene)
	t.mu.Unlock()
	return scene, nil
}

// RemoveLast deletes the newest segment. The initial scene stays.
func (t *Timeline) RemoveLast(ctx context.Context) error {
	last, ok := t.Last()
	if !ok {
		return ErrNoScenes
	}
	if t.initial != nil && last.ID == t.initial.ID {
		return ErrInitialSceneLocked
	}
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.release()

	if err := t.api.DeleteLastSegment(ctx, t.projectID); err != nil {
		return fmt.Errorf("delete last segment: %w", err)
	}

	t.mu.Lock()
	if n := len(t.scenes); n > 0 {
		t.scenes = t.scenes[:n-1]
	}
	t.mu.Unlock()
	return nil
}

func (t *Timeline) acquire() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy {
		return ErrTimelineBusy
	}
	t.busy = true
	return nil
}

func (t *Timeline) release() {
	t.mu.Lock()
	t.busy = false
	t.mu.Unlock()
}
