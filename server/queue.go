package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/teris-io/shortid"

	"github.com/colsephiroth/storyreel/common"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrGenerationNotFound = errors.New("generation not found")
	ErrNoBaseVideo        = errors.New("project has no video to continue from")
	ErrNoSegments         = errors.New("project has no segments")
	ErrPromptRequired     = errors.New("prompt not found, pass ?prompt=... or start an initial generation")
)

// Backend is an in-memory stand-in for the generator service. Stored values
// are never mutated in place; every change stores a fresh copy.
type Backend struct {
	projects    *haxmap.Map[string, *common.ProjectDTO]
	generations *haxmap.Map[string, *common.InitialGeneration]
	initialOf   *haxmap.Map[string, string]
	segments    *haxmap.Map[string, []common.StorySegment]

	// mu serialises read-modify-write sequences across the maps.
	mu sync.Mutex

	generator ClipGenerator
	urlLag    time.Duration
	token     string
	publicURL string
	logger    zerolog.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type BackendOption func(b *Backend)

func WithGenerator(g ClipGenerator) BackendOption {
	return func(b *Backend) {
		b.generator = g
	}
}

// WithURLLag delays attaching the video url after a job reports completed.
func WithURLLag(d time.Duration) BackendOption {
	return func(b *Backend) {
		b.urlLag = d
	}
}

// WithAuthorization requires every request to carry "Token <token>".
func WithAuthorization(token string) BackendOption {
	return func(b *Backend) {
		b.token = strings.TrimSpace(token)
	}
}

// WithPublicURL sets the base used for assembled video urls. An empty value
// keeps the default.
func WithPublicURL(u string) BackendOption {
	return func(b *Backend) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			b.publicURL = u
		}
	}
}

func WithLogger(l zerolog.Logger) BackendOption {
	return func(b *Backend) {
		b.logger = l
	}
}

func NewBackend(options ...BackendOption) *Backend {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Backend{
		projects:    haxmap.New[string, *common.ProjectDTO](),
		generations: haxmap.New[string, *common.InitialGeneration](),
		initialOf:   haxmap.New[string, string](),
		segments:    haxmap.New[string, []common.StorySegment](),
		publicURL:   "http://localhost:8000",
		logger:      zerolog.Nop(),
		now:         func() time.Time { return time.Now().UTC() },
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, option := range options {
		option(b)
	}
	if b.generator == nil {
		b.generator = NewMockGenerator()
	}
	return b
}

// Close stops in-flight generations and waits for them to exit.
func (b *Backend) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *Backend) CreateProject(name string) common.ProjectDTO {
	now := b.now()
	p := &common.ProjectDTO{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.projects.Set(p.ID, p)
	return *p
}

func (b *Backend) Projects() []common.ProjectDTO {
	var list []common.ProjectDTO
	b.projects.ForEach(func(id string, p *common.ProjectDTO) bool {
		list = append(list, b.withGeneration(*p))
		return true
	})
	slices.SortFunc(list, func(a, c common.ProjectDTO) int { return c.CreatedAt.Compare(a.CreatedAt) })
	return list
}

func (b *Backend) Project(id string) (common.ProjectDTO, bool) {
	p, ok := b.projects.Get(id)
	if !ok {
		return common.ProjectDTO{}, false
	}
	return b.withGeneration(*p), true
}

func (b *Backend) RenameProject(id, name string) (common.ProjectDTO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.projects.Get(id)
	if !ok {
		return common.ProjectDTO{}, ErrProjectNotFound
	}
	next := *p
	next.Name = strings.TrimSpace(name)
	next.UpdatedAt = b.now()
	b.projects.Set(id, &next)
	return b.withGeneration(next), nil
}

func (b *Backend) DeleteProject(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.projects.Get(id); !ok {
		return ErrProjectNotFound
	}
	b.projects.Del(id)
	b.segments.Del(id)
	if genID, ok := b.initialOf.Get(id); ok {
		b.generations.Del(genID)
		b.initialOf.Del(id)
	}
	return nil
}

// withGeneration folds the project's initial generation into its DTO.
func (b *Backend) withGeneration(p common.ProjectDTO) common.ProjectDTO {
	genID, ok := b.initialOf.Get(p.ID)
	if !ok {
		return p
	}
	gen, ok := b.generations.Get(genID)
	if !ok {
		return p
	}
	p.GenerationStatus = projectStatus(gen.Status)
	p.InitialVideoURL = gen.InitialVideoURL
	p.Prompt = gen.Prompt
	return p
}

func projectStatus(raw string) string {
	switch common.Normalize(raw) {
	case common.Completed:
		return "completed"
	case common.Failed:
		return "failed"
	case common.Queued:
		return "queued"
	}
	return "running"
}

// StartGeneration creates the project's initial generation job, replacing any
// earlier one, and starts producing its clip in the background.
func (b *Backend) StartGeneration(projectID, prompt string) (common.InitialGeneration, error) {
	if _, ok := b.projects.Get(projectID); !ok {
		return common.InitialGeneration{}, ErrProjectNotFound
	}

	now := b.now()
	prompt = strings.TrimSpace(prompt)
	gen := &common.InitialGeneration{
		ID:        uuid.NewString(),
		Project:   projectID,
		Prompt:    &prompt,
		JobID:     shortid.MustGenerate(),
		Status:    string(common.Queued),
		CreatedAt: now,
		UpdatedAt: now,
	}

	b.mu.Lock()
	if old, ok := b.initialOf.Get(projectID); ok {
		b.generations.Del(old)
	}
	b.generations.Set(gen.ID, gen)
	b.initialOf.Set(projectID, gen.ID)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.runGeneration(gen.ID, prompt)

	b.logger.Info().Str("project_id", projectID).Str("job_id", gen.JobID).Msg("initial generation queued")
	return *gen, nil
}

func (b *Backend) Generation(id string) (common.InitialGeneration, bool) {
	gen, ok := b.generations.Get(id)
	if !ok {
		return common.InitialGeneration{}, false
	}
	return *gen, true
}

func (b *Backend) runGeneration(id, prompt string) {
	defer b.wg.Done()

	b.updateGeneration(id, common.RawProcessing, nil)

	clip, err := b.generator.GenerateClip(b.ctx, prompt)
	if err != nil {
		if b.ctx.Err() != nil {
			return
		}
		b.logger.Warn().Err(err).Str("generation_id", id).Msg("initial generation failed")
		b.updateGeneration(id, string(common.Failed), nil)
		return
	}

	if b.urlLag > 0 {
		b.updateGeneration(id, string(common.Completed), nil)
		timer := time.NewTimer(b.urlLag)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-b.ctx.Done():
			return
		}
	}
	b.updateGeneration(id, string(common.Completed), &clip.URL)
	b.logger.Info().Str("generation_id", id).Str("url", clip.URL).Msg("initial generation completed")
}

func (b *Backend) updateGeneration(id, status string, videoURL *string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen, ok := b.generations.Get(id)
	if !ok {
		return
	}
	next := *gen
	next.Status = status
	next.InitialVideoURL = videoURL
	next.UpdatedAt = b.now()
	b.generations.Set(id, &next)
}

func (b *Backend) Segments(projectID string) []common.StorySegment {
	segs, _ := b.segments.Get(projectID)
	return slices.Clone(segs)
}

// Continue generates the next story segment from the latest video, blocking
// until the clip exists.
func (b *Backend) Continue(ctx context.Context, projectID, nextPrompt string) (common.StorySegment, error) {
	project, ok := b.Project(projectID)
	if !ok {
		return common.StorySegment{}, ErrProjectNotFound
	}

	prevURL, prevPrompt := "", ""
	if project.InitialVideoURL != nil {
		prevURL = *project.InitialVideoURL
	}
	if project.Prompt != nil {
		prevPrompt = *project.Prompt
	}
	if segs := b.Segments(projectID); len(segs) > 0 {
		last := segs[len(segs)-1]
		prevURL, prevPrompt = last.NewVideoURL, last.CumulativePrompt
	}
	if prevURL == "" {
		return common.StorySegment{}, ErrNoBaseVideo
	}

	nextPrompt = strings.TrimSpace(nextPrompt)
	clip, err := b.generator.GenerateClip(ctx, nextPrompt)
	if err != nil {
		return common.StorySegment{}, fmt.Errorf("generate clip: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	segs, _ := b.segments.Get(projectID)
	now := b.now()
	seg := common.StorySegment{
		ID:               uuid.NewString(),
		Project:          projectID,
		Position:         len(segs),
		PreviousVideoURL: prevURL,
		PreviousPrompt:   prevPrompt,
		UsedPrompt:       nextPrompt,
		NewVideoURL:      clip.URL,
		CumulativePrompt: strings.TrimSpace(prevPrompt + " " + nextPrompt),
		Meta:             map[string]any{"duration_sec": clip.DurationSec},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.segments.Set(projectID, append(slices.Clone(segs), seg))
	return seg, nil
}

func (b *Backend) DeleteLast(projectID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.projects.Get(projectID); !ok {
		return ErrProjectNotFound
	}
	segs, _ := b.segments.Get(projectID)
	if len(segs) == 0 {
		return ErrNoSegments
	}
	b.segments.Set(projectID, slices.Clone(segs[:len(segs)-1]))
	return nil
}

func (b *Backend) Assemble(projectID string) (common.AssembleResponse, error) {
	project, ok := b.Project(projectID)
	if !ok {
		return common.AssembleResponse{}, ErrProjectNotFound
	}
	if project.InitialVideoURL == nil && len(b.Segments(projectID)) == 0 {
		return common.AssembleResponse{}, ErrNoBaseVideo
	}
	return common.AssembleResponse{
		ProjectID:    projectID,
		AssembledURL: fmt.Sprintf("%s/media/assembled/%s.mp4", b.publicURL, projectID),
	}, nil
}

// Suggest offers three short continuations. Without an explicit prompt the
// project's initial prompt is used.
func (b *Backend) Suggest(projectID, prompt string) (common.SuggestionsResponse, error) {
	project, ok := b.Project(projectID)
	if !ok {
		return common.SuggestionsResponse{}, ErrProjectNotFound
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && project.Prompt != nil {
		prompt = *project.Prompt
	}
	if prompt == "" {
		return common.SuggestionsResponse{}, ErrPromptRequired
	}

	subject := "It"
	if fields := strings.Fields(prompt); len(fields) > 0 {
		subject = strings.Trim(fields[len(fields)-1], ".,!?")
	}
	return common.SuggestionsResponse{
		ProjectID: projectID,
		Prompt:    prompt,
		Suggestions: []string{
			"Then " + subject + " stops",
			"Suddenly " + subject + " turns",
			"Later " + subject + " speeds up",
		},
	}, nil
}
