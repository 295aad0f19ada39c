package studio

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/inbound"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

const defaultVideoContentType = "video/mp4"

var viewerClosed = inbound.VideoViewer{}

// jobRegistry tracks the cancel functions of in-flight video jobs
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]context.CancelFunc
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[uuid.UUID]context.CancelFunc)}
}

// register derives a cancellable job context. It fails when a job for id
// is already running.
func (r *jobRegistry) register(parent context.Context, id uuid.UUID) (context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; exists {
		return nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	r.jobs[id] = cancel
	return ctx, true
}

func (r *jobRegistry) unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.jobs[id]; ok {
		cancel()
		delete(r.jobs, id)
	}
}

func (r *jobRegistry) cancel(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.jobs[id]
	if ok {
		cancel()
	}
	return ok
}

func (r *jobRegistry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.jobs {
		cancel()
	}
}

func (r *jobRegistry) running(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[id]
	return ok
}

func (r *jobRegistry) ids() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0, len(r.jobs))
	for id := range r.jobs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// GenerateVideo starts a background video job for the active recipe and
// returns immediately with the recipe marked as generating. The recipe
// must have an image, no video and no job in flight.
func (c *Coordinator) GenerateVideo(ctx context.Context) (*recipe.Recipe, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, apperrors.NewAppError(apperrors.CodeServiceUnavailable, "studio is shutting down", "")
	}
	if c.active == nil {
		c.mu.Unlock()
		return nil, apperrors.NewNotFoundError("active recipe")
	}
	if c.jobs.running(c.active.ID) {
		c.mu.Unlock()
		return nil, apperrors.NewConflictError(recipe.ErrVideoInProgress.Error()).WithCause(recipe.ErrVideoInProgress)
	}
	if err := c.active.StartVideo(); err != nil {
		c.mu.Unlock()
		return nil, apperrors.NewConflictError(err.Error()).WithCause(err)
	}

	c.videoErr = ""
	c.logStorage("save current recipe", c.store.saveActive(ctx, c.active))
	if c.saved.UpdateByID(c.active.ID, func(r *recipe.Recipe) { r.IsVideoGenerating = true }) {
		c.logStorage("save saved recipes", c.store.saveSaved(ctx, c.saved))
	}

	target := c.active.Clone()
	jobCtx, _ := c.jobs.register(c.baseCtx, target.ID)
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("Video generation started", zap.String("recipe_id", target.ID.String()))
	c.publish(recipe.NewLifecycleEvent(recipe.EventVideoStarted, &target))

	go c.runVideoJob(jobCtx, target)
	return &target, nil
}

// CancelVideo aborts the video job of a recipe. It reports whether a job
// was running.
func (c *Coordinator) CancelVideo(_ context.Context, recipeID uuid.UUID) bool {
	cancelled := c.jobs.cancel(recipeID)
	if cancelled {
		c.logger.Info("Video generation cancelled", zap.String("recipe_id", recipeID.String()))
	}
	return cancelled
}

func (c *Coordinator) runVideoJob(ctx context.Context, target recipe.Recipe) {
	defer c.wg.Done()
	defer c.jobs.unregister(target.ID)

	started := c.now()
	c.recorder.VideoJobStarted()

	url, err := c.produceVideo(ctx, target)
	if err != nil && ctx.Err() != nil && !isCancellation(err) {
		err = apperrors.NewCancelledError("video generation stopped").WithCause(err)
	}
	c.finishVideo(target, url, err)

	outcome := "success"
	switch {
	case err != nil && isCancellation(err):
		outcome = "cancelled"
	case err != nil:
		outcome = "failure"
	}
	c.recorder.VideoJobFinished(outcome, c.now().Sub(started))
}

// produceVideo runs initiate, poll and fetch, returning the stored video URL
func (c *Coordinator) produceVideo(ctx context.Context, target recipe.Recipe) (string, error) {
	log := c.logger.With(zap.String("recipe_id", target.ID.String()))

	op, err := c.gateway.InitiateVideo(ctx, outbound.VideoRequest{
		RecipeName:         target.Name,
		Base64ImageDataURL: target.ImageURL,
	})
	if err != nil {
		return "", err
	}

	for attempts := 0; op == nil || !op.Done; {
		if op == nil {
			return "", apperrors.NewGatewayError("video operation handle is missing", nil)
		}
		if c.cfg.MaxPollAttempts > 0 && attempts >= c.cfg.MaxPollAttempts {
			return "", apperrors.NewGatewayError("video generation did not finish in time", nil).
				WithMetadata("attempts", attempts)
		}
		if err := c.wait(ctx, c.cfg.PollInterval); err != nil {
			return "", apperrors.NewCancelledError("video polling stopped").WithCause(err)
		}
		attempts++
		c.recorder.VideoPolled()
		log.Debug("Polling video operation", zap.String("operation", op.Name), zap.Int("attempt", attempts))

		op, err = c.gateway.PollVideo(ctx, op)
		if err != nil {
			return "", err
		}
	}

	if op.Error != nil {
		return "", apperrors.NewGatewayError(op.Error.Message, nil).WithMetadata("provider_code", op.Error.Code)
	}
	link := op.DownloadLink()
	if link == "" {
		return "", apperrors.NewArtifactMissingError("operation finished without a video link")
	}

	artifact, err := c.gateway.FetchVideoArtifact(ctx, link)
	if err != nil {
		return "", err
	}
	if artifact == nil || artifact.Body == nil {
		return "", apperrors.NewArtifactMissingError("video download returned no body")
	}
	defer artifact.Body.Close()

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = defaultVideoContentType
	}
	obj, err := c.media.Put(ctx, videoKey(target.ID), artifact.Body, artifact.Size, contentType)
	if err != nil {
		if isCancellation(err) || ctx.Err() != nil {
			return "", apperrors.NewCancelledError("video download stopped").WithCause(err)
		}
		return "", apperrors.NewStorageError("store video", err)
	}
	if obj.Size == 0 {
		_ = c.media.Delete(c.persistCtx(), obj.Key)
		return "", apperrors.NewArtifactMissingError("video download was empty")
	}

	log.Info("Video stored", zap.String("key", obj.Key), zap.Int64("bytes", obj.Size))
	return obj.URL, nil
}

// finishVideo reconciles the job outcome into the active recipe and the
// saved entry that share the job's recipe id
func (c *Coordinator) finishVideo(target recipe.Recipe, url string, err error) {
	apply := func(r *recipe.Recipe) {
		if err == nil {
			r.AttachVideo(url)
		} else {
			r.FailVideo()
		}
	}
	persist := c.persistCtx()

	c.mu.Lock()
	if c.active != nil && c.active.SameAs(target) {
		apply(c.active)
		c.logStorage("save current recipe", c.store.saveActive(persist, c.active))
	}
	if c.saved.UpdateByID(target.ID, apply) {
		c.logStorage("save saved recipes", c.store.saveSaved(persist, c.saved))
	}

	var event recipe.LifecycleEvent
	if err == nil {
		c.viewer = inbound.VideoViewer{Open: true, URL: url, RecipeName: target.Name}
		event = recipe.NewLifecycleEvent(recipe.EventVideoAttached, &target)
	} else {
		key := msgErrorVideoGeneration
		if isCancellation(err) {
			key = msgErrorVideoCancelled
		}
		c.videoErr = c.t(c.form.Language, key)
		event = recipe.NewLifecycleEvent(recipe.EventVideoFailed, &target).WithMessage(c.videoErr)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Video generation failed",
			zap.String("recipe_id", target.ID.String()),
			zap.Error(err),
		)
	} else {
		c.logger.Info("Video generation finished", zap.String("recipe_id", target.ID.String()))
	}
	c.publish(event)
}

// OpenVideoViewer shows the video of the named recipe, or of the active
// recipe when name is empty
func (c *Coordinator) OpenVideoViewer(_ context.Context, name string) (inbound.VideoViewer, error) {
	c.mu.Lock()
	r, ok := c.recipeByNameLocked(name)
	if !ok {
		c.mu.Unlock()
		return viewerClosed, apperrors.NewNotFoundError("recipe").WithMetadata("recipe_name", name)
	}
	if !r.HasVideo() {
		c.mu.Unlock()
		return viewerClosed, apperrors.NewNotFoundError("video").WithMetadata("recipe_name", r.Name)
	}
	c.viewer = inbound.VideoViewer{Open: true, URL: r.VideoURL, RecipeName: r.Name}
	viewer := c.viewer
	c.mu.Unlock()

	c.publish(recipe.NewLifecycleEvent(recipe.EventViewerChanged, &r))
	return viewer, nil
}

// CloseVideoViewer hides the video viewer
func (c *Coordinator) CloseVideoViewer(_ context.Context) {
	c.mu.Lock()
	c.viewer = viewerClosed
	c.mu.Unlock()
	c.publish(recipe.NewLifecycleEvent(recipe.EventViewerChanged, nil))
}

func videoKey(id uuid.UUID) string {
	return fmt.Sprintf("videos/%s.mp4", id)
}
