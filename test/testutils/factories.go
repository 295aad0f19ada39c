// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/alchemorsel/studio/internal/domain/recipe"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Generated returns a structurally complete recipe as a provider would
// produce it: no ID and no lifecycle fields
func (f *RecipeFactory) Generated() recipe.Recipe {
	name := fmt.Sprintf("%s %s", f.faker.Adjective(), f.faker.Dinner())
	return recipe.Recipe{
		Name:        name,
		Description: f.faker.Sentence(12),
		PrepTime:    fmt.Sprintf("%d minutes", f.faker.Number(5, 30)),
		CookTime:    fmt.Sprintf("%d minutes", f.faker.Number(10, 60)),
		Servings:    fmt.Sprintf("%d servings", f.faker.Number(1, 6)),
		Ingredients: []string{
			fmt.Sprintf("%d g %s", f.faker.Number(50, 500), f.faker.Vegetable()),
			fmt.Sprintf("%d g %s", f.faker.Number(50, 500), f.faker.Fruit()),
			"1 tbsp olive oil",
		},
		Instructions: []string{
			f.faker.Sentence(8),
			f.faker.Sentence(8),
			f.faker.Sentence(8),
		},
		Nutrition: recipe.Nutrition{
			Calories:      fmt.Sprintf("%d kcal", f.faker.Number(150, 900)),
			Protein:       fmt.Sprintf("%dg", f.faker.Number(2, 60)),
			Carbs:         fmt.Sprintf("%dg", f.faker.Number(5, 120)),
			Fat:           fmt.Sprintf("%dg", f.faker.Number(1, 50)),
			GlycemicIndex: f.faker.RandomString([]string{"Low", "Medium", "High"}),
		},
	}
}

// Named returns a generated recipe with a fixed name
func (f *RecipeFactory) Named(name string) recipe.Recipe {
	r := f.Generated()
	r.Name = name
	return r
}

// Form returns a valid form with random ingredients
func (f *RecipeFactory) Form() recipe.FormState {
	form := recipe.DefaultForm()
	form.Ingredients = fmt.Sprintf("%s, %s, %s", f.faker.Vegetable(), f.faker.Vegetable(), f.faker.Fruit())
	return form
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	r recipe.Recipe
}

// NewRecipeBuilder creates a new recipe builder with default values
func NewRecipeBuilder() *RecipeBuilder {
	r := NewRecipeFactory(time.Now().UnixNano()).Generated()
	r.ID = uuid.New()
	return &RecipeBuilder{r: r}
}

// WithName sets the recipe name
func (rb *RecipeBuilder) WithName(name string) *RecipeBuilder {
	rb.r.Name = name
	return rb
}

// WithID sets the recipe id
func (rb *RecipeBuilder) WithID(id uuid.UUID) *RecipeBuilder {
	rb.r.ID = id
	return rb
}

// WithImage sets the image data URL
func (rb *RecipeBuilder) WithImage(url string) *RecipeBuilder {
	rb.r.ImageURL = url
	return rb
}

// WithVideo sets the video URL
func (rb *RecipeBuilder) WithVideo(url string) *RecipeBuilder {
	rb.r.VideoURL = url
	return rb
}

// Generating marks a video job as in flight
func (rb *RecipeBuilder) Generating() *RecipeBuilder {
	rb.r.IsVideoGenerating = true
	return rb
}

// WithRating sets the star rating
func (rb *RecipeBuilder) WithRating(rating int) *RecipeBuilder {
	rb.r.Rating = rating
	return rb
}

// WithNotes sets the personal notes
func (rb *RecipeBuilder) WithNotes(notes string) *RecipeBuilder {
	rb.r.Notes = notes
	return rb
}

// SavedAt marks the recipe as saved
func (rb *RecipeBuilder) SavedAt(at time.Time) *RecipeBuilder {
	rb.r.SavedAt = &at
	return rb
}

// Build returns the recipe
func (rb *RecipeBuilder) Build() recipe.Recipe {
	return rb.r.Clone()
}

// SampleImageURL is a small inline JPEG data URL
const SampleImageURL = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="
