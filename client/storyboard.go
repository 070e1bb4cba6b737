package client

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/colsephiroth/storyreel/common"
)

type Storyboard struct {
	Project          common.Project  `json:"project"`
	CreatedAt        time.Time       `json:"createdAt"`
	TotalScenes      int             `json:"totalScenes"`
	TotalDurationSec int             `json:"totalDurationSec"`
	Playlist         []PlaylistEntry `json:"playlist"`
}

type PlaylistEntry struct {
	Index       int       `json:"index"`
	Prompt      string    `json:"prompt"`
	URL         string    `json:"url,omitempty"`
	DurationSec int       `json:"durationSec,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NewStoryboard lays scenes out as a playlist, numbered from 1.
func NewStoryboard(project common.Project, scenes []common.Scene, now time.Time) Storyboard {
	sb := Storyboard{
		Project:     project,
		CreatedAt:   now,
		TotalScenes: len(scenes),
		Playlist:    make([]PlaylistEntry, 0, len(scenes)),
	}
	for i, s := range scenes {
		sb.TotalDurationSec += s.DurationSec
		sb.Playlist = append(sb.Playlist, PlaylistEntry{
			Index:       i + 1,
			Prompt:      s.Prompt,
			URL:         s.ClipURL,
			DurationSec: s.DurationSec,
			CreatedAt:   s.CreatedAt,
		})
	}
	return sb
}

// StoryboardFilename derives "<name>_storyboard.json" with whitespace runs
// collapsed to underscores. The name is NFC-normalised so the same project
// yields the same filename on every platform.
func StoryboardFilename(projectName string) string {
	name := whitespaceRun.ReplaceAllString(norm.NFC.String(projectName), "_")
	return name + "_storyboard.json"
}

// BuildStoryboard renders the storyboard file contents and its filename.
func BuildStoryboard(project common.Project, scenes []common.Scene, now time.Time) ([]byte, string, error) {
	data, err := json.MarshalIndent(NewStoryboard(project, scenes, now), "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode storyboard: %w", err)
	}
	return data, StoryboardFilename(project.Name), nil
}
