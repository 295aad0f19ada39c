package studio

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// Save adds the active recipe to the saved collection. Saving a name that
// is already present changes nothing.
func (c *Coordinator) Save(ctx context.Context) (*recipe.Recipe, error) {
	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return nil, apperrors.NewNotFoundError("active recipe")
	}
	if c.saved.ContainsName(c.active.Name) {
		existing := c.active.Clone()
		c.mu.Unlock()
		return &existing, nil
	}

	entry := c.active.Clone()
	entry.MarkSaved(c.now())
	c.saved.Add(entry)
	c.logStorage("save saved recipes", c.store.saveSaved(ctx, c.saved))

	active := entry.Clone()
	c.active = &active
	c.logStorage("save current recipe", c.store.saveActive(ctx, c.active))
	c.mu.Unlock()

	c.logger.Info("Recipe saved", zap.String("recipe_id", entry.ID.String()), zap.String("recipe_name", entry.Name))
	c.publish(recipe.NewLifecycleEvent(recipe.EventRecipeSaved, &entry))
	return &entry, nil
}

// Delete removes the saved recipe with that name. The active display is
// cleared when it shows the deleted recipe. Unknown names are ignored.
func (c *Coordinator) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	removed, ok := c.saved.RemoveByName(name)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.logStorage("save saved recipes", c.store.saveSaved(ctx, c.saved))

	displayed := c.active != nil && c.active.SameAs(removed)
	if displayed {
		c.active = nil
		c.logStorage("save current recipe", c.store.saveActive(ctx, nil))
		if c.viewer.Open && c.viewer.RecipeName == removed.Name {
			c.viewer = viewerClosed
		}
	}
	c.mu.Unlock()

	// Nothing references the recipe anymore, so its job result has no home.
	if displayed {
		c.jobs.cancel(removed.ID)
	}

	c.logger.Info("Recipe deleted", zap.String("recipe_id", removed.ID.String()), zap.String("recipe_name", removed.Name))
	c.publish(recipe.NewLifecycleEvent(recipe.EventRecipeDeleted, &removed))
	return nil
}

// SelectSaved displays a saved recipe and clears all error fields
func (c *Coordinator) SelectSaved(ctx context.Context, name string) (*recipe.Recipe, error) {
	c.mu.Lock()
	entry, ok := c.saved.ByName(name)
	if !ok {
		c.mu.Unlock()
		return nil, apperrors.NewNotFoundError("saved recipe").WithMetadata("recipe_name", name)
	}
	c.active = &entry
	c.errMsg, c.imageErr, c.videoErr = "", "", ""
	c.logStorage("save current recipe", c.store.saveActive(ctx, c.active))
	result := entry.Clone()
	target := c.imageCandidateLocked()
	c.mu.Unlock()

	c.publish(recipe.NewLifecycleEvent(recipe.EventRecipeSelected, &result))
	c.startImageAttach(target)
	return &result, nil
}

// SearchSaved filters the saved collection by name, sorted by name
func (c *Coordinator) SearchSaved(query string) []recipe.Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved.Search(query)
}

// Rate sets the star rating of the active recipe and of its saved entry.
// Values outside 1..5 are rejected.
func (c *Coordinator) Rate(ctx context.Context, rating int) (*recipe.Recipe, error) {
	if err := recipe.ValidateRating(rating); err != nil {
		return nil, apperrors.NewValidationError(err.Error()).WithCause(err).WithMetadata("rating", rating)
	}

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return nil, apperrors.NewNotFoundError("active recipe")
	}
	_ = c.active.Rate(rating)
	c.logStorage("save current recipe", c.store.saveActive(ctx, c.active))
	if c.saved.UpdateByID(c.active.ID, func(r *recipe.Recipe) { r.Rating = rating }) {
		c.logStorage("save saved recipes", c.store.saveSaved(ctx, c.saved))
	}
	result := c.active.Clone()
	c.mu.Unlock()

	c.publish(recipe.NewLifecycleEvent(recipe.EventRecipeRated, &result))
	return &result, nil
}

// UpdateNotes replaces the notes of a saved recipe, mirroring them into the
// active display when it shows the same recipe.
func (c *Coordinator) UpdateNotes(ctx context.Context, name, notes string) (*recipe.Recipe, error) {
	c.mu.Lock()
	updated, ok := c.saved.UpdateByName(name, func(r *recipe.Recipe) { r.Notes = notes })
	if !ok {
		c.mu.Unlock()
		return nil, apperrors.NewNotFoundError("saved recipe").WithMetadata("recipe_name", name)
	}
	c.logStorage("save saved recipes", c.store.saveSaved(ctx, c.saved))
	if c.active != nil && c.active.SameAs(updated) {
		c.active.Notes = notes
		c.logStorage("save current recipe", c.store.saveActive(ctx, c.active))
	}
	c.mu.Unlock()

	c.publish(recipe.NewLifecycleEvent(recipe.EventNotesUpdated, &updated))
	return &updated, nil
}

// recipeByNameLocked resolves a name against the active recipe first and
// the saved collection second. An empty name means the active recipe.
func (c *Coordinator) recipeByNameLocked(name string) (recipe.Recipe, bool) {
	name = strings.TrimSpace(name)
	if c.active != nil && (name == "" || c.active.Name == name) {
		return c.active.Clone(), true
	}
	if name == "" {
		return recipe.Recipe{}, false
	}
	return c.saved.ByName(name)
}
