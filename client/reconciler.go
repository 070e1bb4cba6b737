package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colsephiroth/storyreel/common"
)

// PollToken identifies one generation attempt.
type PollToken string

func NewPollToken(jobID string, at time.Time) PollToken {
	return PollToken(fmt.Sprintf("%s:%d", jobID, at.UnixMilli()))
}

// pollChain is the live poll loop of one submission. Only the chain the
// reconciler currently points at may touch state.
type pollChain struct {
	token  PollToken
	jobID  string
	ctx    context.Context
	cancel context.CancelFunc
}

// Reconciler submits an initial generation job and polls it until the backend
// reports a terminal outcome, projecting everything into a State.
//
// Poll cycles of one chain never overlap: the next cycle is scheduled only
// after the previous response or failure was applied. Responses belonging to
// a superseded chain are dropped without touching state.
type Reconciler struct {
	api       GenerationAPI
	projectID string
	opts      *Options
	logger    zerolog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu             sync.Mutex
	state          State
	seq            uint64
	chain          *pollChain
	netErrAttempts int
	completedSince time.Time
	closed         bool

	notifyMu  sync.Mutex
	delivered uint64
}

func NewReconciler(api GenerationAPI, projectID string, options *Options) *Reconciler {
	var opts *Options
	if options != nil {
		opts = options
	} else {
		opts = NewOptions()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Reconciler{
		api:        api,
		projectID:  projectID,
		opts:       opts,
		logger:     opts.Logger.With().Str("project_id", projectID).Logger(),
		baseCtx:    ctx,
		cancelBase: cancel,
		state:      State{Status: common.Idle},
	}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Token returns the token of the current chain, or "" when there is none.
func (r *Reconciler) Token() PollToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chain == nil {
		return ""
	}
	return r.chain.token
}

// BackoffAttempts returns the consecutive transport failures counted so far.
func (r *Reconciler) BackoffAttempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.netErrAttempts
}

// Start resets all state and submits a new generation for prompt. A failed
// submission is recorded in State and also returned. Calling Start again
// supersedes whatever the previous call started.
func (r *Reconciler) Start(ctx context.Context, prompt string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.resetLocked()
	seq := r.seq
	r.state.Prompt = prompt
	r.state.Status = common.Submitting
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(snap)

	job, err := r.api.SubmitGenerationJob(ctx, r.projectID, prompt)

	r.mu.Lock()
	if r.seq != seq {
		r.mu.Unlock()
		r.logger.Debug().Str("job_id", job.ID).Msg("discarding superseded submission")
		return ErrSuperseded
	}

	if err != nil {
		serr := &SubmissionError{Err: err}
		r.state.Err = serr
		r.state.Status = common.Failed
		snap = r.snapshotLocked()
		r.mu.Unlock()
		r.logger.Error().Err(err).Msg("generation submission failed")
		r.notify(snap)
		return serr
	}

	chainCtx, cancel := context.WithCancel(r.baseCtx)
	c := &pollChain{
		token:  NewPollToken(job.ID, r.opts.Clock.Now()),
		jobID:  job.ID,
		ctx:    chainCtx,
		cancel: cancel,
	}
	r.chain = c
	r.state.JobID = job.ID
	r.state.RawStatus = job.Status
	r.state.Status = common.Normalize(job.Status)
	r.state.Polling = true
	r.opts.Scheduler.Schedule(func() { r.poll(c) }, r.opts.FirstPollDelay)
	snap = r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info().
		Str("job_id", job.ID).
		Str("token", string(c.token)).
		Str("status", job.Status).
		Msg("generation submitted")
	r.notify(snap)
	return nil
}

// Reset cancels any pending poll and returns to idle.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.resetLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(snap)
}

// Close resets the reconciler and refuses further Start calls.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetLocked()
	r.closed = true
	r.cancelBase()
}

func (r *Reconciler) resetLocked() {
	r.opts.Scheduler.Stop()
	if r.chain != nil {
		r.chain.cancel()
		r.chain = nil
	}
	r.seq++
	r.netErrAttempts = 0
	r.completedSince = time.Time{}
	r.state = State{Status: common.Idle, version: r.state.version}
}

func (r *Reconciler) poll(c *pollChain) {
	r.mu.Lock()
	if r.chain != c {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	res, err := r.api.FetchGenerationStatus(c.ctx, c.jobID)

	r.mu.Lock()
	if r.chain != c {
		r.mu.Unlock()
		r.logger.Debug().Str("token", string(c.token)).Msg("discarding stale poll response")
		return
	}
	if err != nil {
		r.pollFailedLocked(c, err)
	} else {
		r.applyLocked(c, res)
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(snap)
}

func (r *Reconciler) pollFailedLocked(c *pollChain, err error) {
	if r.netErrAttempts < r.opts.MaxNetworkErrorSteps {
		r.netErrAttempts++
	}
	delay := r.opts.Jitter(r.opts.NetworkErrorBase * time.Duration(r.netErrAttempts))
	r.state.Err = &TransientPollError{Attempt: r.netErrAttempts, Err: err}
	r.scheduleLocked(c, delay)

	r.logger.Warn().
		Err(err).
		Str("job_id", c.jobID).
		Int("attempt", r.netErrAttempts).
		Dur("retry_in", delay).
		Msg("status check failed")
}

func (r *Reconciler) applyLocked(c *pollChain, res common.InitialGeneration) {
	r.netErrAttempts = 0

	status := common.Normalize(res.Status)
	if !common.IsKnownStatus(res.Status) {
		r.logger.Warn().
			Str("job_id", c.jobID).
			Str("raw_status", res.Status).
			Msg("unknown backend status, treating as in progress")
	}

	r.state.Status = status
	r.state.RawStatus = res.Status
	r.state.ResultURL = res.VideoURL()
	if p := res.PromptText(); p != "" {
		r.state.Prompt = p
	}
	var transient *TransientPollError
	if errors.As(r.state.Err, &transient) {
		r.state.Err = nil
	}

	log := r.logger.With().Str("job_id", c.jobID).Str("token", string(c.token)).Logger()

	switch status {
	case common.Failed:
		r.completedSince = time.Time{}
		r.stopLocked(c)
		r.state.Err = ErrGenerationFailed
		log.Info().Msg("generation failed")

	case common.Completed:
		if r.state.ResultURL != "" {
			r.completedSince = time.Time{}
			r.stopLocked(c)
			log.Info().Str("url", r.state.ResultURL).Msg("generation completed")
			return
		}
		now := r.opts.Clock.Now()
		if r.completedSince.IsZero() {
			r.completedSince = now
		} else if waited := now.Sub(r.completedSince); waited > r.opts.MaxResultWait {
			r.stopLocked(c)
			r.state.Err = ErrResultTimeout
			log.Error().Dur("waited", waited).Msg("completed job never received a video url")
			return
		}
		r.scheduleLocked(c, r.opts.Jitter(r.opts.CompletedWaitInterval))

	case common.Queued:
		r.scheduleLocked(c, r.opts.Jitter(r.opts.QueuedInterval))

	default:
		// running, in_progress, and echoes of idle/submitting all keep polling.
		r.scheduleLocked(c, r.opts.Jitter(r.opts.InProgressInterval))
	}
}

func (r *Reconciler) scheduleLocked(c *pollChain, delay time.Duration) {
	r.state.Polling = true
	r.opts.Scheduler.Schedule(func() { r.poll(c) }, delay)
	r.logger.Debug().Str("job_id", c.jobID).Dur("delay", delay).Msg("next status check scheduled")
}

// stopLocked ends the chain's polling but keeps it as the current chain so
// its token remains visible.
func (r *Reconciler) stopLocked(c *pollChain) {
	r.opts.Scheduler.Stop()
	c.cancel()
	r.state.Polling = false
}

func (r *Reconciler) snapshotLocked() State {
	r.state.version++
	return r.state
}

// notify delivers snapshots to the observer in version order, dropping any
// that were overtaken by a newer one.
func (r *Reconciler) notify(s State) {
	if r.opts.Observer == nil {
		return
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if s.version <= r.delivered {
		return
	}
	r.delivered = s.version
	r.opts.Observer(s)
}
