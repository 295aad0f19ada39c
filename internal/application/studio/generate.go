package studio

import (
	"context"

	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// Generate requests a new recipe. When form is non-nil it replaces the
// current form first. Blank ingredients fail without contacting the
// gateway. The previous recipe and all error fields are cleared before the
// request; a failure leaves no active recipe.
func (c *Coordinator) Generate(ctx context.Context, form *recipe.FormState) (*recipe.Recipe, error) {
	c.mu.Lock()
	if form != nil {
		normalized, err := form.Normalize()
		if err != nil {
			c.mu.Unlock()
			return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
		}
		c.form = normalized
		c.logStorage("save form", c.store.saveForm(ctx, c.form))
	}
	current := c.form

	if err := current.ValidateForGeneration(); err != nil {
		msg := c.t(current.Language, msgErrorIngredients)
		c.errMsg = msg
		c.mu.Unlock()
		c.publish(recipe.NewLifecycleEvent(recipe.EventGenerationFailed, nil).WithMessage(msg))
		return nil, apperrors.NewValidationError(msg).WithCause(err)
	}
	if c.loading {
		c.mu.Unlock()
		return nil, apperrors.NewConflictError("a recipe is already being generated")
	}

	c.loading = true
	c.errMsg, c.imageErr, c.videoErr = "", "", ""
	c.active = nil
	c.logStorage("save current recipe", c.store.saveActive(ctx, nil))
	c.mu.Unlock()

	c.publish(recipe.NewLifecycleEvent(recipe.EventGenerationBegan, nil))
	c.logger.Info("Generating recipe",
		zap.String("meal_type", string(current.MealType)),
		zap.String("language", string(current.Language)),
		zap.Int("dietary_options", len(current.DietaryOptions)),
		zap.Int("cooking_methods", len(current.CookingMethods)),
		zap.Bool("quick_meal", current.IsQuickMeal),
	)

	generated, err := c.gateway.CreateRecipe(ctx, current)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		msg := c.t(current.Language, msgErrorGeneration)
		c.errMsg = msg
		c.mu.Unlock()
		c.logger.Error("Recipe generation failed", zap.Error(err))
		c.publish(recipe.NewLifecycleEvent(recipe.EventGenerationFailed, nil).WithMessage(msg))
		return nil, surface(err, msg)
	}

	r := recipe.NewRecipe(*generated)
	c.active = r
	c.logStorage("save current recipe", c.store.saveActive(ctx, c.active))
	result := r.Clone()
	target := c.imageCandidateLocked()
	c.mu.Unlock()

	c.logger.Info("Recipe generated",
		zap.String("recipe_id", result.ID.String()),
		zap.String("recipe_name", result.Name),
	)
	c.publish(recipe.NewLifecycleEvent(recipe.EventRecipeGenerated, &result))
	c.startImageAttach(target)
	return &result, nil
}

// imageCandidateLocked returns the active recipe when it needs an image
// and no attempt was made for it yet, recording the attempt. Callers hold mu.
func (c *Coordinator) imageCandidateLocked() *recipe.Recipe {
	if c.active == nil || !c.active.NeedsImage() || c.closed {
		return nil
	}
	if _, tried := c.imageTried[c.active.ID]; tried {
		return nil
	}
	c.imageTried[c.active.ID] = struct{}{}
	c.imageErr = ""
	target := c.active.Clone()
	c.wg.Add(1)
	return &target
}

// startImageAttach runs the image fetch for target in the background.
// The wait group slot was reserved by imageCandidateLocked.
func (c *Coordinator) startImageAttach(target *recipe.Recipe) {
	if target == nil {
		return
	}
	go func() {
		defer c.wg.Done()
		c.attachImage(c.baseCtx, *target)
	}()
}

func (c *Coordinator) attachImage(ctx context.Context, target recipe.Recipe) {
	url, err := c.gateway.CreateImage(ctx, outbound.ImageRequest{
		RecipeName:  target.Name,
		Description: target.Description,
	})

	c.mu.Lock()
	if err != nil {
		msg := c.t(c.form.Language, msgErrorImageGeneration)
		if c.active != nil && c.active.SameAs(target) {
			c.imageErr = msg
		}
		c.mu.Unlock()

		c.recorder.ImageAttempted("failure")
		c.logger.Warn("Image generation failed",
			zap.String("recipe_id", target.ID.String()),
			zap.Error(err),
		)
		c.publish(recipe.NewLifecycleEvent(recipe.EventImageFailed, &target).WithMessage(msg))
		return
	}

	persist := c.persistCtx()
	if c.active != nil && c.active.SameAs(target) && c.active.AttachImage(url) {
		c.logStorage("save current recipe", c.store.saveActive(persist, c.active))
	}
	savedChanged := false
	c.saved.UpdateByID(target.ID, func(r *recipe.Recipe) {
		savedChanged = r.AttachImage(url)
	})
	if savedChanged {
		c.logStorage("save saved recipes", c.store.saveSaved(persist, c.saved))
	}
	c.mu.Unlock()

	c.recorder.ImageAttempted("success")
	c.logger.Debug("Image attached", zap.String("recipe_id", target.ID.String()))
	c.publish(recipe.NewLifecycleEvent(recipe.EventImageAttached, &target))
}
