package client

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/colsephiroth/storyreel/common"
)

// InitialSceneID is the deterministic scene id of a project's initial clip.
func InitialSceneID(projectID string) string {
	return "initial-" + projectID
}

// PlaceInitialScene makes sure the initial clip sits at the front of scenes.
// An empty list gets the initial scene appended. Otherwise an existing entry,
// matched by id or else by clip url, is moved to the front and normalised;
// when none matches a new initial scene is prepended.
func PlaceInitialScene(scenes []common.Scene, projectID, clipURL string, now time.Time) []common.Scene {
	if clipURL == "" || projectID == "" {
		return scenes
	}
	id := InitialSceneID(projectID)
	initial := common.Scene{
		ID:        id,
		Prompt:    "Initial preview",
		CreatedAt: now,
		Status:    common.SceneReady,
		ClipURL:   clipURL,
	}

	if len(scenes) == 0 {
		return []common.Scene{initial}
	}

	idx := slices.IndexFunc(scenes, func(s common.Scene) bool { return s.ID == id })
	if idx == -1 {
		idx = slices.IndexFunc(scenes, func(s common.Scene) bool { return s.ClipURL == clipURL })
	}
	if idx == -1 {
		return append([]common.Scene{initial}, scenes...)
	}

	item := scenes[idx]
	item.ID = id
	item.Status = common.SceneReady
	item.ClipURL = clipURL

	next := make([]common.Scene, 0, len(scenes))
	next = append(next, item)
	next = append(next, scenes[:idx]...)
	next = append(next, scenes[idx+1:]...)
	return next
}

// AddDraft appends a queued scene for prompt and returns its id.
func AddDraft(scenes []common.Scene, prompt string, now time.Time) ([]common.Scene, string) {
	draft := common.Scene{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		CreatedAt: now,
		Status:    common.SceneQueued,
	}
	return append(slices.Clone(scenes), draft), draft.ID
}

func MarkGenerating(scenes []common.Scene, id string) []common.Scene {
	return updateScene(scenes, id, func(s *common.Scene) {
		s.Status = common.SceneGenerating
	})
}

// MarkReady attaches the clip; a zero duration leaves the old one in place.
func MarkReady(scenes []common.Scene, id, clipURL string, durationSec int) []common.Scene {
	return updateScene(scenes, id, func(s *common.Scene) {
		s.Status = common.SceneReady
		s.ClipURL = clipURL
		if durationSec > 0 {
			s.DurationSec = durationSec
		}
	})
}

func MarkError(scenes []common.Scene, id, msg string) []common.Scene {
	return updateScene(scenes, id, func(s *common.Scene) {
		s.Status = common.SceneError
		s.ErrorMsg = msg
	})
}

func RemoveScene(scenes []common.Scene, id string) []common.Scene {
	return slices.DeleteFunc(slices.Clone(scenes), func(s common.Scene) bool { return s.ID == id })
}

func updateScene(scenes []common.Scene, id string, f func(*common.Scene)) []common.Scene {
	next := slices.Clone(scenes)
	for i := range next {
		if next[i].ID == id {
			f(&next[i])
		}
	}
	return next
}
