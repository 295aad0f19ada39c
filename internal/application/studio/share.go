package studio

import (
	"context"

	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// GenerateSocialPost writes a promotional post for the named recipe, or
// for the active recipe when name is empty. An empty lang uses the form
// language. Nothing is stored.
func (c *Coordinator) GenerateSocialPost(ctx context.Context, name string, lang recipe.Language) (string, error) {
	c.mu.Lock()
	r, ok := c.recipeByNameLocked(name)
	formLang := c.form.Language
	c.mu.Unlock()

	if !ok {
		return "", apperrors.NewNotFoundError("recipe").WithMetadata("recipe_name", name)
	}
	if lang == "" {
		lang = formLang
	}
	parsed, err := recipe.ParseLanguage(string(lang))
	if err != nil {
		return "", apperrors.NewValidationError(err.Error()).WithCause(err)
	}

	post, err := c.gateway.CreateSocialPost(ctx, outbound.SocialPostRequest{Recipe: r, Language: parsed})
	if err != nil {
		c.logger.Warn("Social post generation failed",
			zap.String("recipe_id", r.ID.String()),
			zap.Error(err),
		)
		return "", surface(err, c.t(parsed, msgErrorSocialPostGeneration))
	}
	return post, nil
}

// ShareByEmail renders the active recipe as an email hand-off
func (c *Coordinator) ShareByEmail(_ context.Context) (recipe.Email, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return recipe.Email{}, apperrors.NewNotFoundError("active recipe")
	}
	labels := c.messages.EmailLabels(c.form.Language)
	return recipe.BuildEmail(*c.active, c.cfg.RecipientEmail, labels), nil
}
