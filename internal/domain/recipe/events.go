package recipe

import (
	"time"

	"github.com/google/uuid"
)

// Domain Events - Events that occur during a recipe's lifecycle

// Event names
const (
	EventFormUpdated      = "form.updated"
	EventGenerationBegan  = "recipe.generation.started"
	EventRecipeGenerated  = "recipe.generated"
	EventGenerationFailed = "recipe.generation.failed"
	EventRecipeSelected   = "recipe.selected"
	EventRecipeSaved      = "recipe.saved"
	EventRecipeDeleted    = "recipe.deleted"
	EventRecipeRated      = "recipe.rated"
	EventNotesUpdated     = "recipe.notes.updated"
	EventImageAttached    = "recipe.image.attached"
	EventImageFailed      = "recipe.image.failed"
	EventVideoStarted     = "recipe.video.started"
	EventVideoAttached    = "recipe.video.attached"
	EventVideoFailed      = "recipe.video.failed"
	EventViewerChanged    = "viewer.changed"
	EventStateLoaded      = "state.loaded"
)

// LifecycleEvent is raised whenever the studio state changes. RecipeID is
// uuid.Nil for events that concern no particular recipe.
type LifecycleEvent struct {
	Name     string
	RecipeID uuid.UUID
	Recipe   string
	Message  string
	At       time.Time
}

// NewLifecycleEvent creates an event stamped with the current time
func NewLifecycleEvent(name string, r *Recipe) LifecycleEvent {
	e := LifecycleEvent{Name: name, At: time.Now().UTC()}
	if r != nil {
		e.RecipeID = r.ID
		e.Recipe = r.Name
	}
	return e
}

// WithMessage attaches a human readable detail, usually an error message
func (e LifecycleEvent) WithMessage(msg string) LifecycleEvent {
	e.Message = msg
	return e
}

func (e LifecycleEvent) EventName() string {
	return e.Name
}

func (e LifecycleEvent) OccurredAt() time.Time {
	return e.At
}
