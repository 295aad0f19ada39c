package recipe

import "errors"

// Domain errors for recipe operations

var (
	// Form validation errors
	ErrEmptyIngredients     = errors.New("ingredients must not be empty")
	ErrUnknownMealType      = errors.New("unknown meal type")
	ErrUnknownDietaryOption = errors.New("unknown dietary option")
	ErrUnknownCookingMethod = errors.New("unknown cooking method")
	ErrUnsupportedLanguage  = errors.New("unsupported language")

	// Lifecycle errors
	ErrImageRequired   = errors.New("recipe has no image to animate")
	ErrVideoExists     = errors.New("recipe already has a video")
	ErrVideoInProgress = errors.New("video generation already in progress")
	ErrRecipeNotFound  = errors.New("recipe not found")

	// Annotation errors
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
