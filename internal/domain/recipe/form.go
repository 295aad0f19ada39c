package recipe

import (
	"errors"
	"strings"
)

// FormState is the user's generation input
type FormState struct {
	Ingredients    string          `json:"ingredients"`
	MealType       MealType        `json:"mealType"`
	DietaryOptions []DietaryOption `json:"dietaryOptions"`
	CookingMethods []CookingMethod `json:"cookingMethods"`
	Language       Language        `json:"language"`
	IsQuickMeal    bool            `json:"isQuickMeal"`
}

// DefaultForm returns the form used when nothing has been persisted
func DefaultForm() FormState {
	return FormState{
		Ingredients:    "",
		MealType:       MealTypeAny,
		DietaryOptions: []DietaryOption{},
		CookingMethods: []CookingMethod{},
		Language:       DefaultLanguage,
		IsQuickMeal:    false,
	}
}

// Normalize validates every enum value and returns a canonical copy: sets
// are deduplicated and keep the order they were selected in. Unknown
// values are errors.
func (f FormState) Normalize() (FormState, error) {
	out := FormState{
		Ingredients: f.Ingredients,
		IsQuickMeal: f.IsQuickMeal,
	}

	var errs []error

	meal, err := ParseMealType(string(f.MealType))
	if err != nil {
		errs = append(errs, err)
	}
	out.MealType = meal

	lang, err := ParseLanguage(string(f.Language))
	if err != nil {
		errs = append(errs, err)
	}
	out.Language = lang

	out.DietaryOptions = make([]DietaryOption, 0, len(f.DietaryOptions))
	seenDietary := make(map[DietaryOption]bool, len(f.DietaryOptions))
	for _, d := range f.DietaryOptions {
		parsed, err := ParseDietaryOption(string(d))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !seenDietary[parsed] {
			seenDietary[parsed] = true
			out.DietaryOptions = append(out.DietaryOptions, parsed)
		}
	}

	out.CookingMethods = make([]CookingMethod, 0, len(f.CookingMethods))
	seenMethods := make(map[CookingMethod]bool, len(f.CookingMethods))
	for _, c := range f.CookingMethods {
		parsed, err := ParseCookingMethod(string(c))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !seenMethods[parsed] {
			seenMethods[parsed] = true
			out.CookingMethods = append(out.CookingMethods, parsed)
		}
	}

	if len(errs) > 0 {
		return FormState{}, errors.Join(errs...)
	}
	return out, nil
}

// Sanitize is the lenient counterpart of Normalize used for persisted
// forms: unknown values fall back to their defaults instead of failing.
func (f FormState) Sanitize() FormState {
	def := DefaultForm()
	out := FormState{Ingredients: f.Ingredients, IsQuickMeal: f.IsQuickMeal}

	if meal, err := ParseMealType(string(f.MealType)); err == nil {
		out.MealType = meal
	} else {
		out.MealType = def.MealType
	}
	if lang, err := ParseLanguage(string(f.Language)); err == nil {
		out.Language = lang
	} else {
		out.Language = def.Language
	}

	var dietary []DietaryOption
	for _, d := range f.DietaryOptions {
		if _, err := ParseDietaryOption(string(d)); err == nil {
			dietary = append(dietary, d)
		}
	}
	var methods []CookingMethod
	for _, c := range f.CookingMethods {
		if _, err := ParseCookingMethod(string(c)); err == nil {
			methods = append(methods, c)
		}
	}
	out.DietaryOptions = dietary
	out.CookingMethods = methods

	normalized, err := out.Normalize()
	if err != nil {
		return def
	}
	return normalized
}

// HasIngredients reports whether the ingredients field has visible text
func (f FormState) HasIngredients() bool {
	return strings.TrimSpace(f.Ingredients) != ""
}

// ValidateForGeneration checks the preconditions of a generation request
func (f FormState) ValidateForGeneration() error {
	if !f.HasIngredients() {
		return ErrEmptyIngredients
	}
	return nil
}
