package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// Persisted keys
const (
	KeySavedRecipes  = "ai_recipe_generator_saved_recipes"
	KeyFormState     = "ai_recipe_generator_form_state"
	KeyCurrentRecipe = "ai_recipe_generator_current_recipe"
)

// stateStore maps studio state onto the key-value store. Failures are
// reported to the caller as storage errors; the coordinator logs and
// swallows them so the in-memory state stays authoritative.
type stateStore struct {
	kv     outbound.KeyValueStore
	prefix string
}

func (s stateStore) key(name string) string {
	return s.prefix + name
}

func (s stateStore) loadForm(ctx context.Context) (recipe.FormState, bool, error) {
	var form recipe.FormState
	found, err := s.getJSON(ctx, KeyFormState, &form)
	if err != nil || !found {
		return recipe.DefaultForm(), false, err
	}
	return form.Sanitize(), true, nil
}

func (s stateStore) loadActive(ctx context.Context) (*recipe.Recipe, error) {
	var r recipe.Recipe
	found, err := s.getJSON(ctx, KeyCurrentRecipe, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

func (s stateStore) loadSaved(ctx context.Context) ([]recipe.Recipe, error) {
	var recipes []recipe.Recipe
	if _, err := s.getJSON(ctx, KeySavedRecipes, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s stateStore) saveForm(ctx context.Context, form recipe.FormState) error {
	return s.setJSON(ctx, KeyFormState, form)
}

// saveActive writes the active recipe or removes the key when there is none
func (s stateStore) saveActive(ctx context.Context, r *recipe.Recipe) error {
	if r == nil {
		if err := s.kv.Delete(ctx, s.key(KeyCurrentRecipe)); err != nil {
			return apperrors.NewStorageError("delete current recipe", err)
		}
		return nil
	}
	return s.setJSON(ctx, KeyCurrentRecipe, r)
}

func (s stateStore) saveSaved(ctx context.Context, set recipe.SavedSet) error {
	return s.setJSON(ctx, KeySavedRecipes, set.List())
}

func (s stateStore) getJSON(ctx context.Context, name string, target interface{}) (bool, error) {
	data, err := s.kv.Get(ctx, s.key(name))
	if errors.Is(err, outbound.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("read "+name, err)
	}
	if len(data) == 0 || string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, apperrors.NewStorageError("decode "+name, err)
	}
	return true, nil
}

func (s stateStore) setJSON(ctx context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStorageError("encode "+name, fmt.Errorf("marshal: %w", err))
	}
	if err := s.kv.Set(ctx, s.key(name), data); err != nil {
		return apperrors.NewStorageError("write "+name, err)
	}
	return nil
}

// logStorage reports a swallowed storage failure
func (c *Coordinator) logStorage(op string, err error) {
	if err == nil {
		return
	}
	c.recorder.StorageFailed(op)
	c.logger.Warn("Persisting studio state failed", zap.String("operation", op), zap.Error(err))
}
