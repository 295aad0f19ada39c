package generation

// Response schemas in the provider's OpenAPI subset. Types are upper-case
// as the Generative Language API expects.

func stringField(description string) map[string]interface{} {
	field := map[string]interface{}{"type": "STRING"}
	if description != "" {
		field["description"] = description
	}
	return field
}

func stringList(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "ARRAY",
		"items":       map[string]interface{}{"type": "STRING"},
		"description": description,
	}
}

func recipeSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"recipeName":   stringField("Creative and appealing title for the recipe."),
			"description":  stringField("A brief, enticing description of the dish."),
			"prepTime":     stringField(`Estimated preparation time, e.g., "15 minutes".`),
			"cookTime":     stringField(`Estimated cooking time, e.g., "30 minutes".`),
			"servings":     stringField(`Number of servings the recipe makes, e.g., "4 servings".`),
			"ingredients":  stringList("List of all required ingredients with quantities, including those provided and any additional ones needed."),
			"instructions": stringList("Step-by-step instructions for preparing the dish."),
			"nutrition": map[string]interface{}{
				"type":        "OBJECT",
				"description": "Estimated nutritional information per serving.",
				"properties": map[string]interface{}{
					"calories":      stringField(`Estimated calories per serving, e.g., "350 kcal".`),
					"protein":       stringField(`Estimated protein per serving, e.g., "30g".`),
					"carbs":         stringField(`Estimated carbohydrates per serving, e.g., "25g".`),
					"fat":           stringField(`Estimated fat per serving, e.g., "15g".`),
					"glycemicIndex": stringField(`Estimated Glycemic Index of the dish (e.g., "Low", "Medium", "High", or a numeric value).`),
				},
				"required": []string{"calories", "protein", "carbs", "fat"},
			},
		},
		"required": []string{"recipeName", "description", "prepTime", "cookTime", "servings", "ingredients", "instructions", "nutrition"},
	}
}

func socialPostSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"post": stringField("A single, generic, and versatile social media post with emojis, relevant hashtags, and a placeholder URL."),
		},
		"required": []string{"post"},
	}
}
