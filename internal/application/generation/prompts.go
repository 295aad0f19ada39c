package generation

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/studio/internal/domain/recipe"
)

const (
	recipeSystemInstruction = "You are an expert chef who creates simple, delicious, and easy-to-follow recipes. Your primary function is to respond in the user's specified language."

	placeholderURL = "https://your-recipe-website.com"
)

// buildRecipePrompt creates the user prompt for a recipe request
func buildRecipePrompt(form recipe.FormState) string {
	languageName := form.Language.OrDefault().EnglishName()

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("IMPORTANT: You must generate the entire recipe response strictly in the %s language. Every single field in the JSON output (recipeName, description, ingredients, instructions, nutrition fields, etc.) must be in %s.\n\n", languageName, languageName))
	prompt.WriteString("When specifying temperatures, you MUST use the degree symbol '°' (Unicode U+00B0). For example: \"Preheat oven to 350°F (175°C)\". Do not use any other character to represent degrees.\n\n")
	prompt.WriteString(fmt.Sprintf("Based on the following available ingredients: \"%s\", generate a single recipe.\n\n", strings.TrimSpace(form.Ingredients)))

	if form.IsQuickMeal {
		prompt.WriteString("The combined preparation and cooking time for the recipe MUST be 30 minutes or less. Prioritize quick and easy recipes.\n")
	}
	if !form.MealType.IsAny() {
		prompt.WriteString(fmt.Sprintf("The recipe should be for %s.\n", form.MealType.Lower()))
	}
	if len(form.DietaryOptions) > 0 {
		prompt.WriteString(fmt.Sprintf("It should also adhere to the following dietary restrictions: %s.\n", joinValues(form.DietaryOptions)))
	}
	if len(form.CookingMethods) > 0 {
		prompt.WriteString(fmt.Sprintf("The recipe must be suitable for someone who only has the following equipment available: %s. Please do not suggest recipes requiring equipment that is not on this list (for example, if 'Oven' is not listed, do not suggest a baking recipe).\n", joinValues(form.CookingMethods)))
	}

	prompt.WriteString("\nPlease provide a complete recipe. If the provided ingredients are insufficient, you can add a few common pantry staples (like oil, salt, pepper, flour, sugar, etc.) to make a complete dish.\n\n")
	prompt.WriteString("Also include an estimated nutritional breakdown per serving (calories, protein, carbs, fat, and Glycemic Index).\n\n")
	prompt.WriteString("The tone should be encouraging and friendly.\n")
	prompt.WriteString("Ensure the output is a valid JSON object that strictly follows the provided schema.\n\n")
	prompt.WriteString(fmt.Sprintf("Final reminder: The entire JSON response and all its text content must be in %s.", languageName))

	return prompt.String()
}

func socialSystemInstruction(lang recipe.Language) string {
	return fmt.Sprintf("You are a social media marketing expert specializing in food content. You must respond ONLY in the %s language. The tone should be fun, enthusiastic, and appetizing.", lang.OrDefault().EnglishName())
}

// buildSocialPrompt creates the user prompt for a promotional post
func buildSocialPrompt(r recipe.Recipe, lang recipe.Language) string {
	languageName := lang.OrDefault().EnglishName()

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("IMPORTANT: You must generate the entire response strictly in the %s language. The JSON field must be in %s.\n\n", languageName, languageName))
	prompt.WriteString(fmt.Sprintf("Generate one engaging, generic social media post for a recipe called \"%s\".\n", r.Name))
	prompt.WriteString(fmt.Sprintf("Recipe Description: %s\n\n", r.Description))
	prompt.WriteString("The post should be versatile enough for any platform.\n")
	prompt.WriteString(fmt.Sprintf("- Use relevant emojis and hashtags (e.g., #Recipe #Foodie %s).\n", recipe.Hashtag(r.Name)))
	prompt.WriteString(fmt.Sprintf("- At the end of the post, you MUST include the following placeholder URL: %s\n", placeholderURL))
	prompt.WriteString("- Ensure the output is a valid JSON object that strictly follows the provided schema. Do not add any extra text or explanations outside of the JSON object.\n\n")
	prompt.WriteString(fmt.Sprintf("Final reminder: The entire JSON output and its text content must be in %s.", languageName))

	return prompt.String()
}

func buildImagePrompt(recipeName string) string {
	return fmt.Sprintf("Food photography of \"%s\", delicious, appetizing, high detail, vibrant colors.", recipeName)
}

func buildVideoPrompt(recipeName string) string {
	return fmt.Sprintf("Generate a short, visually appealing video of the dish '%s' from the image provided. The video should be dynamic and appetizing, showcasing the dish in a flattering way.", recipeName)
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
