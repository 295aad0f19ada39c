// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/google/uuid"
)

// StudioService is the recipe lifecycle driven by the presentation layer.
// It owns the form, the active recipe, the saved collection and the
// background image and video jobs of a single user.
type StudioService interface {
	// Lifecycle
	Load(ctx context.Context) error
	Close() error
	State() StudioState

	// Form and generation
	UpdateForm(ctx context.Context, form recipe.FormState) (recipe.FormState, error)
	Generate(ctx context.Context, form *recipe.FormState) (*recipe.Recipe, error)

	// Saved collection
	Save(ctx context.Context) (*recipe.Recipe, error)
	Delete(ctx context.Context, name string) error
	SelectSaved(ctx context.Context, name string) (*recipe.Recipe, error)
	SearchSaved(query string) []recipe.Recipe
	Rate(ctx context.Context, rating int) (*recipe.Recipe, error)
	UpdateNotes(ctx context.Context, name, notes string) (*recipe.Recipe, error)

	// Media
	GenerateVideo(ctx context.Context) (*recipe.Recipe, error)
	CancelVideo(ctx context.Context, recipeID uuid.UUID) bool
	OpenVideoViewer(ctx context.Context, name string) (VideoViewer, error)
	CloseVideoViewer(ctx context.Context)

	// Sharing
	GenerateSocialPost(ctx context.Context, name string, lang recipe.Language) (string, error)
	ShareByEmail(ctx context.Context) (recipe.Email, error)
}

// StudioState is a consistent snapshot of everything the presentation
// layer renders.
type StudioState struct {
	Form         recipe.FormState `json:"form"`
	ActiveRecipe *recipe.Recipe   `json:"activeRecipe"`
	SavedRecipes []recipe.Recipe  `json:"savedRecipes"`
	IsSaved      bool             `json:"isSaved"`
	IsLoading    bool             `json:"isLoading"`
	Error        string           `json:"error,omitempty"`
	ImageError   string           `json:"imageError,omitempty"`
	VideoError   string           `json:"videoError,omitempty"`
	VideoViewer  VideoViewer      `json:"videoViewer"`
	VideoJobs    []uuid.UUID      `json:"videoJobs"`
}

// VideoViewer is the "watch video" overlay
type VideoViewer struct {
	Open       bool   `json:"open"`
	URL        string `json:"url,omitempty"`
	RecipeName string `json:"recipeName,omitempty"`
}
