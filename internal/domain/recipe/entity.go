// Package recipe contains the core domain model of the studio: generated
// recipes, the saved collection and the generation form.
package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// Recipe is a generated recipe together with the media and annotations
// attached to it over its lifetime. The JSON shape is the persisted and
// wire format.
type Recipe struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"recipeName"`
	Description  string    `json:"description"`
	PrepTime     string    `json:"prepTime"`
	CookTime     string    `json:"cookTime"`
	Servings     string    `json:"servings"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	Nutrition    Nutrition `json:"nutrition"`

	// Media
	ImageURL          string `json:"imageUrl,omitempty"`
	VideoURL          string `json:"videoUrl,omitempty"`
	IsVideoGenerating bool   `json:"isVideoGenerating,omitempty"`

	// Annotations, meaningful once saved
	Rating  int        `json:"rating,omitempty"`
	Notes   string     `json:"notes,omitempty"`
	SavedAt *time.Time `json:"savedAt,omitempty"`
}

// Nutrition is the estimated per-serving breakdown. Values are free text
// such as "350 kcal" or "30g".
type Nutrition struct {
	Calories      string `json:"calories"`
	Protein       string `json:"protein"`
	Carbs         string `json:"carbs"`
	Fat           string `json:"fat"`
	GlycemicIndex string `json:"glycemicIndex,omitempty"`
}

// NewRecipe assigns a fresh identity to a recipe produced by the gateway
// and clears any lifecycle fields the provider may have echoed back.
func NewRecipe(generated Recipe) *Recipe {
	r := generated.Clone()
	r.ID = uuid.New()
	r.ImageURL = ""
	r.VideoURL = ""
	r.IsVideoGenerating = false
	r.Rating = 0
	r.Notes = ""
	r.SavedAt = nil
	return &r
}

// EnsureID assigns an identity to records persisted before ids existed.
// It reports whether an id was assigned.
func (r *Recipe) EnsureID() bool {
	if r.ID != uuid.Nil {
		return false
	}
	r.ID = uuid.New()
	return true
}

// Clone returns a deep copy
func (r Recipe) Clone() Recipe {
	c := r
	c.Ingredients = append([]string(nil), r.Ingredients...)
	c.Instructions = append([]string(nil), r.Instructions...)
	if r.SavedAt != nil {
		t := *r.SavedAt
		c.SavedAt = &t
	}
	return c
}

// SameAs reports whether both values describe the same recipe instance.
func (r Recipe) SameAs(other Recipe) bool {
	return r.ID != uuid.Nil && r.ID == other.ID
}

// HasImage reports whether the illustrative image is attached
func (r Recipe) HasImage() bool {
	return r.ImageURL != ""
}

// HasVideo reports whether a video is attached
func (r Recipe) HasVideo() bool {
	return r.VideoURL != ""
}

// NeedsImage reports whether an image should be fetched automatically.
// A recipe that already carries a video never needs one.
func (r Recipe) NeedsImage() bool {
	return !r.HasImage() && !r.HasVideo()
}

// CanGenerateVideo checks the preconditions of a video job
func (r Recipe) CanGenerateVideo() error {
	switch {
	case !r.HasImage():
		return ErrImageRequired
	case r.HasVideo():
		return ErrVideoExists
	case r.IsVideoGenerating:
		return ErrVideoInProgress
	}
	return nil
}

// StartVideo marks the video job as in flight
func (r *Recipe) StartVideo() error {
	if err := r.CanGenerateVideo(); err != nil {
		return err
	}
	r.IsVideoGenerating = true
	return nil
}

// AttachVideo finishes a successful video job
func (r *Recipe) AttachVideo(url string) {
	r.VideoURL = url
	r.IsVideoGenerating = false
}

// FailVideo finishes a failed video job
func (r *Recipe) FailVideo() {
	r.IsVideoGenerating = false
}

// AttachImage sets the image unless one is already present. It reports
// whether the recipe changed.
func (r *Recipe) AttachImage(url string) bool {
	if r.HasImage() || url == "" {
		return false
	}
	r.ImageURL = url
	return true
}

// Rate sets the star rating
func (r *Recipe) Rate(value int) error {
	if err := ValidateRating(value); err != nil {
		return err
	}
	r.Rating = value
	return nil
}

// ValidateRating rejects values outside MinRating..MaxRating
func ValidateRating(value int) error {
	if value < MinRating || value > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// MarkSaved stamps the recipe as entering the saved collection
func (r *Recipe) MarkSaved(at time.Time) {
	t := at.UTC()
	r.SavedAt = &t
	r.Notes = ""
}

// ResetStaleVideoFlag clears an in-flight marker that cannot belong to a
// live job, e.g. after a restart. It reports whether the flag was set.
func (r *Recipe) ResetStaleVideoFlag() bool {
	if !r.IsVideoGenerating {
		return false
	}
	r.IsVideoGenerating = false
	return true
}

// MissingFields lists the required fields that are empty, using the wire
// names. An empty result means the recipe is structurally complete.
func (r Recipe) MissingFields() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	check("recipeName", r.Name)
	check("description", r.Description)
	check("prepTime", r.PrepTime)
	check("cookTime", r.CookTime)
	check("servings", r.Servings)
	if len(r.Ingredients) == 0 {
		missing = append(missing, "ingredients")
	}
	if len(r.Instructions) == 0 {
		missing = append(missing, "instructions")
	}
	check("nutrition.calories", r.Nutrition.Calories)
	check("nutrition.protein", r.Nutrition.Protein)
	check("nutrition.carbs", r.Nutrition.Carbs)
	check("nutrition.fat", r.Nutrition.Fat)

	return missing
}
