package recipe

import (
	"fmt"
	"strings"
)

// Value Objects - closed vocabularies offered by the generation form

// MealType restricts the kind of dish
type MealType string

const (
	MealTypeAny       MealType = "Any"
	MealTypeBreakfast MealType = "Breakfast"
	MealTypeLunch     MealType = "Lunch"
	MealTypeDinner    MealType = "Dinner"
	MealTypeSnack     MealType = "Snack"
	MealTypeDessert   MealType = "Dessert"
	MealTypeSoup      MealType = "Soup"
)

// MealTypes lists the meal types in display order
var MealTypes = []MealType{
	MealTypeAny, MealTypeBreakfast, MealTypeLunch, MealTypeDinner,
	MealTypeSnack, MealTypeDessert, MealTypeSoup,
}

// DietaryOption is a dietary restriction
type DietaryOption string

const (
	DietaryVegetarian DietaryOption = "Vegetarian"
	DietaryVegan      DietaryOption = "Vegan"
	DietaryGlutenFree DietaryOption = "Gluten-Free"
	DietaryDairyFree  DietaryOption = "Dairy-Free"
)

// DietaryOptions lists the dietary options in display order
var DietaryOptions = []DietaryOption{
	DietaryVegetarian, DietaryVegan, DietaryGlutenFree, DietaryDairyFree,
}

// CookingMethod is a piece of available cooking equipment
type CookingMethod string

const (
	CookingStovetop    CookingMethod = "Stovetop"
	CookingOven        CookingMethod = "Oven"
	CookingMicrowave   CookingMethod = "Microwave"
	CookingGrill       CookingMethod = "Grill"
	CookingCharcoalBBQ CookingMethod = "Charcoal BBQ"
	CookingGasBBQ      CookingMethod = "Gas BBQ"
	CookingAirFryer    CookingMethod = "Air Fryer"
	CookingNoCook      CookingMethod = "No-Cook"
)

// CookingMethods lists the cooking methods in display order
var CookingMethods = []CookingMethod{
	CookingStovetop, CookingOven, CookingMicrowave, CookingGrill,
	CookingCharcoalBBQ, CookingGasBBQ, CookingAirFryer, CookingNoCook,
}

// ParseMealType matches a meal type case-insensitively. Empty input is Any.
func ParseMealType(s string) (MealType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MealTypeAny, nil
	}
	for _, m := range MealTypes {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMealType, s)
}

// ParseDietaryOption matches a dietary option case-insensitively
func ParseDietaryOption(s string) (DietaryOption, error) {
	s = strings.TrimSpace(s)
	for _, d := range DietaryOptions {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDietaryOption, s)
}

// ParseCookingMethod matches a cooking method case-insensitively
func ParseCookingMethod(s string) (CookingMethod, error) {
	s = strings.TrimSpace(s)
	for _, c := range CookingMethods {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCookingMethod, s)
}

// Lower returns the meal type as used inside a sentence
func (m MealType) Lower() string {
	return strings.ToLower(string(m))
}

// IsAny reports whether the meal type places no restriction
func (m MealType) IsAny() bool {
	return m == "" || m == MealTypeAny
}
