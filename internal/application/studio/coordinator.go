// Package studio implements the recipe lifecycle: generation, automatic
// image attachment, background video jobs and the saved collection of a
// single user. All state lives in one Coordinator whose mutex serializes
// every mutation together with its persistence.
package studio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/domain/shared"
	"github.com/alchemorsel/studio/internal/ports/inbound"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// DefaultPollInterval is the wait between two video status checks
const DefaultPollInterval = 10 * time.Second

// Config tunes the coordinator
type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int // 0 polls until the provider reports done
	RecipientEmail  string
	KeyPrefix       string
}

// Recorder receives lifecycle measurements
type Recorder interface {
	VideoJobStarted()
	VideoJobFinished(outcome string, elapsed time.Duration)
	VideoPolled()
	ImageAttempted(outcome string)
	StorageFailed(operation string)
}

type nopRecorder struct{}

func (nopRecorder) VideoJobStarted() {}
func (nopRecorder) VideoJobFinished(string, time.Duration) {}
func (nopRecorder) VideoPolled() {}
func (nopRecorder) ImageAttempted(string) {}
func (nopRecorder) StorageFailed(string) {}

// WaitFunc blocks for d or until ctx is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// Option configures a Coordinator
type Option func(*Coordinator)

// WithWaiter replaces the inter-poll wait, mainly for tests
func WithWaiter(wait WaitFunc) Option {
	return func(c *Coordinator) { c.wait = wait }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithEventPublisher sets where state change events go
func WithEventPublisher(p outbound.EventPublisher) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.events = p
		}
	}
}

// Coordinator owns the studio state
type Coordinator struct {
	gateway  outbound.Gateway
	store    stateStore
	media    outbound.MediaStore
	events   outbound.EventPublisher
	recorder Recorder
	messages *Messages
	logger   *zap.Logger
	cfg      Config
	wait     WaitFunc
	now      func() time.Time

	mu         sync.Mutex
	form       recipe.FormState
	active     *recipe.Recipe
	saved      recipe.SavedSet
	loading    bool
	errMsg     string
	imageErr   string
	videoErr   string
	viewer     inbound.VideoViewer
	imageTried map[uuid.UUID]struct{}
	closed     bool

	jobs    *jobRegistry
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

var _ inbound.StudioService = (*Coordinator)(nil)

// NewCoordinator creates a coordinator with default form state. Call Load
// to restore persisted state.
func NewCoordinator(
	gateway outbound.Gateway,
	kv outbound.KeyValueStore,
	media outbound.MediaStore,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	baseCtx, stop := context.WithCancel(context.Background())

	c := &Coordinator{
		gateway:    gateway,
		store:      stateStore{kv: kv, prefix: cfg.KeyPrefix},
		media:      media,
		events:     outbound.EventPublisherFunc(func(shared.DomainEvent) {}),
		recorder:   nopRecorder{},
		messages:   NewMessages(),
		logger:     logger.Named("studio"),
		cfg:        cfg,
		wait:       sleepContext,
		now:        time.Now,
		form:       recipe.DefaultForm(),
		imageTried: make(map[uuid.UUID]struct{}),
		jobs:       newJobRegistry(),
		baseCtx:    baseCtx,
		stop:       stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load restores form, active recipe and saved collection. Storage failures
// are logged and leave the defaults in place. Any persisted in-flight video
// marker is cleared since no job survives a restart.
func (c *Coordinator) Load(ctx context.Context) error {
	form, _, err := c.store.loadForm(ctx)
	c.logStorage("load form", err)
	active, err := c.store.loadActive(ctx)
	c.logStorage("load current recipe", err)
	saved, err := c.store.loadSaved(ctx)
	c.logStorage("load saved recipes", err)

	c.mu.Lock()
	set := recipe.NewSavedSet(saved)
	savedDirty := set.Each(func(r *recipe.Recipe) bool {
		assigned := r.EnsureID()
		reset := r.ResetStaleVideoFlag()
		return assigned || reset
	})

	activeDirty := false
	if active != nil {
		if active.ID == uuid.Nil {
			if entry, ok := set.ByName(active.Name); ok {
				active.ID = entry.ID
			} else {
				active.EnsureID()
			}
			activeDirty = true
		}
		if active.ResetStaleVideoFlag() {
			activeDirty = true
		}
	}

	c.form = form
	c.active = active
	c.saved = set
	if savedDirty {
		c.logStorage("save saved recipes", c.store.saveSaved(ctx, c.saved))
	}
	if activeDirty {
		c.logStorage("save current recipe", c.store.saveActive(ctx, c.active))
	}
	target := c.imageCandidateLocked()
	c.mu.Unlock()

	c.logger.Info("Studio state loaded",
		zap.Int("saved_recipes", set.Len()),
		zap.Bool("has_active_recipe", active != nil),
	)
	c.publish(recipe.NewLifecycleEvent(recipe.EventStateLoaded, nil))
	c.startImageAttach(target)
	return nil
}

// Close cancels background jobs and waits for them to finish
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.jobs.cancelAll()
	c.stop()
	c.wg.Wait()
	return nil
}

// Wait blocks until all background image and video jobs have finished
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// State returns a snapshot of the studio
func (c *Coordinator) State() inbound.StudioState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := inbound.StudioState{
		Form:         c.form,
		SavedRecipes: c.saved.List(),
		IsLoading:    c.loading,
		Error:        c.errMsg,
		ImageError:   c.imageErr,
		VideoError:   c.videoErr,
		VideoViewer:  c.viewer,
		VideoJobs:    c.jobs.ids(),
	}
	if c.active != nil {
		active := c.active.Clone()
		state.ActiveRecipe = &active
		state.IsSaved = c.saved.ContainsName(active.Name)
	}
	return state
}

// UpdateForm validates and stores new form input
func (c *Coordinator) UpdateForm(ctx context.Context, form recipe.FormState) (recipe.FormState, error) {
	normalized, err := form.Normalize()
	if err != nil {
		return recipe.FormState{}, apperrors.NewValidationError(err.Error()).WithCause(err)
	}

	c.mu.Lock()
	c.form = normalized
	c.logStorage("save form", c.store.saveForm(ctx, c.form))
	c.mu.Unlock()

	c.publish(recipe.NewLifecycleEvent(recipe.EventFormUpdated, nil))
	return normalized, nil
}

func (c *Coordinator) publish(event shared.DomainEvent) {
	c.events.Publish(event)
}

func (c *Coordinator) t(lang recipe.Language, key string) string {
	return c.messages.T(lang, key)
}

// persistCtx outlives Close so finalizing jobs can still write their result
func (c *Coordinator) persistCtx() context.Context {
	return context.WithoutCancel(c.baseCtx)
}

// surface turns a collaborator failure into the error shown to the user
func surface(err error, message string) *apperrors.AppError {
	code := apperrors.CodeGateway
	if appErr, ok := apperrors.As(err); ok {
		code = appErr.Code
	}
	if isCancellation(err) {
		code = apperrors.CodeCancelled
	}
	return apperrors.NewAppError(code, message, apperrors.MessageOf(err)).WithCause(err)
}

func isCancellation(err error) bool {
	return apperrors.Is(err, apperrors.CodeCancelled) || errors.Is(err, context.Canceled)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
