package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/inbound"
)

const videoPollInterval = 5 * time.Second

func newRecipeCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newGenerateCommand(ctx),
		newFormCommand(ctx),
		newShowCommand(ctx),
		newSavedCommand(ctx),
		newSaveCommand(ctx),
		newSelectCommand(ctx),
		newDeleteCommand(ctx),
		newRateCommand(ctx),
		newNotesCommand(ctx),
		newVideoCommand(ctx),
		newImageCommand(ctx),
		newSocialCommand(ctx),
		newShareCommand(ctx),
	}
}

// formFlags are the generation inputs that can be set from the command line
type formFlags struct {
	ingredients string
	meal        string
	diet        []string
	methods     []string
	lang        string
	quick       bool
}

func (f *formFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.ingredients, "ingredients", "i", "", "Comma separated ingredients on hand")
	flags.StringVar(&f.meal, "meal", "", "Meal type (Any, Breakfast, Lunch, Dinner, Snack, Dessert, Soup)")
	flags.StringSliceVar(&f.diet, "diet", nil, "Dietary options (repeatable)")
	flags.StringSliceVar(&f.methods, "method", nil, "Cooking methods (repeatable)")
	flags.StringVar(&f.lang, "lang", "", "Recipe language, e.g. en or es-MX")
	flags.BoolVar(&f.quick, "quick", false, "Prefer meals ready in 30 minutes")
}

// apply overlays the flags that were set on form
func (f *formFlags) apply(cmd *cobra.Command, form recipe.FormState) (recipe.FormState, bool) {
	changed := false
	flags := cmd.Flags()
	if flags.Changed("ingredients") {
		form.Ingredients = f.ingredients
		changed = true
	}
	if flags.Changed("meal") {
		form.MealType = recipe.MealType(f.meal)
		changed = true
	}
	if flags.Changed("diet") {
		form.DietaryOptions = make([]recipe.DietaryOption, len(f.diet))
		for i, d := range f.diet {
			form.DietaryOptions[i] = recipe.DietaryOption(strings.TrimSpace(d))
		}
		changed = true
	}
	if flags.Changed("method") {
		form.CookingMethods = make([]recipe.CookingMethod, len(f.methods))
		for i, m := range f.methods {
			form.CookingMethods[i] = recipe.CookingMethod(strings.TrimSpace(m))
		}
		changed = true
	}
	if flags.Changed("lang") {
		form.Language = recipe.Language(f.lang)
		changed = true
	}
	if flags.Changed("quick") {
		form.IsQuickMeal = f.quick
		changed = true
	}
	return form, changed
}

func fetchState(ctx context.Context, c *apiClient) (inbound.StudioState, error) {
	var state inbound.StudioState
	err := c.get(ctx, "/state", &state)
	return state, err
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var flags formFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a recipe from the current form",
		Long:  "Generate a recipe. Flags update the persisted form before generating; without flags the saved form is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			var body interface{}

			state, err := fetchState(cmd.Context(), c)
			if err != nil {
				return err
			}
			if form, changed := flags.apply(cmd, state.Form); changed {
				body = form
			}

			var generated recipe.Recipe
			if err := c.post(cmd.Context(), "/generate", body, &generated); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, generated)
			}
			renderRecipe(out, generated, shouldColorize(out))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newFormCommand(ctx *commandContext) *cobra.Command {
	var flags formFlags
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Show or update the generation form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			state, err := fetchState(cmd.Context(), c)
			if err != nil {
				return err
			}
			form := state.Form
			if updated, changed := flags.apply(cmd, form); changed {
				if err := c.put(cmd.Context(), "/form", updated, &form); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, form)
			}
			renderForm(out, form)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active recipe and any errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := fetchState(cmd.Context(), ctx.client())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, state)
			}
			renderState(out, state, shouldColorize(out))
			return nil
		},
	}
}

func newSavedCommand(ctx *commandContext) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "List saved recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/saved"
			if strings.TrimSpace(query) != "" {
				path += "?q=" + url.QueryEscape(query)
			}
			var found []recipe.Recipe
			if err := ctx.client().get(cmd.Context(), path, &found); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, found)
			}
			renderSaved(out, found)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by recipe name")
	return cmd
}

func newSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the active recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var saved recipe.Recipe
			if err := ctx.client().post(cmd.Context(), "/saved", nil, &saved); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, saved)
			}
			fmt.Fprintf(out, "Saved %q\n", saved.Name)
			return nil
		},
	}
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select NAME",
		Short: "Make a saved recipe the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var selected recipe.Recipe
			if err := ctx.client().post(cmd.Context(), "/saved/"+pathEscape(args[0])+"/select", nil, &selected); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, selected)
			}
			renderRecipe(out, selected, shouldColorize(out))
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a recipe from the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().delete(cmd.Context(), "/saved/"+pathEscape(args[0]), nil); err != nil {
				return err
			}
			if !*ctx.jsonFlag {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
			}
			return nil
		},
	}
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate N",
		Short: "Rate the active recipe from 1 to 5 stars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[0])
			if err != nil || rating < 1 || rating > 5 {
				return fmt.Errorf("rating must be a whole number from 1 to 5, got %q", args[0])
			}
			var rated recipe.Recipe
			if err := ctx.client().post(cmd.Context(), "/active/rating", map[string]int{"rating": rating}, &rated); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, rated)
			}
			fmt.Fprintf(out, "%s  %s\n", rated.Name, stars(rated.Rating))
			return nil
		},
	}
}

func newNotesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notes NAME TEXT",
		Short: "Replace the personal notes of a saved recipe",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes := strings.Join(args[1:], " ")
			var updated recipe.Recipe
			if err := ctx.client().put(cmd.Context(), "/saved/"+pathEscape(args[0])+"/notes", map[string]string{"notes": notes}, &updated); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, updated)
			}
			fmt.Fprintf(out, "Updated notes for %q\n", updated.Name)
			return nil
		},
	}
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var cancelID string
	var wait bool
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Generate a video of the active recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			out := cmd.OutOrStdout()

			if cancelID != "" {
				var resp struct {
					Cancelled bool `json:"cancelled"`
				}
				if err := c.delete(cmd.Context(), "/videos/"+pathEscape(cancelID), &resp); err != nil {
					return err
				}
				if *ctx.jsonFlag {
					return printJSON(out, resp)
				}
				if resp.Cancelled {
					fmt.Fprintln(out, "Video job cancelled")
				} else {
					fmt.Fprintln(out, "No video job was running for that recipe")
				}
				return nil
			}

			var started recipe.Recipe
			if err := c.post(cmd.Context(), "/active/video", nil, &started); err != nil {
				return err
			}
			if !wait {
				if *ctx.jsonFlag {
					return printJSON(out, started)
				}
				fmt.Fprintf(out, "Video generation started for %q (%s)\n", started.Name, started.ID)
				return nil
			}

			var progress io.Writer
			if !*ctx.jsonFlag {
				progress = cmd.ErrOrStderr()
			}
			final, err := waitForVideo(cmd.Context(), c, started, progress)
			if err != nil {
				return err
			}
			if *ctx.jsonFlag {
				return printJSON(out, final)
			}
			if final.VideoURL == "" {
				return fmt.Errorf("video generation for %q did not produce a video", final.Name)
			}
			fmt.Fprintf(out, "Video ready: %s\n", final.VideoURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&cancelID, "cancel", "", "Cancel the video job of the recipe with this id")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the video is ready")
	return cmd
}

// waitForVideo polls the studio state until the recipe stops generating.
// A dot is written to progress on every poll when progress is not nil.
func waitForVideo(ctx context.Context, c *apiClient, started recipe.Recipe, progress io.Writer) (recipe.Recipe, error) {
	ticker := time.NewTicker(videoPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return recipe.Recipe{}, ctx.Err()
		case <-ticker.C:
		}

		state, err := fetchState(ctx, c)
		if err != nil {
			return recipe.Recipe{}, err
		}
		current, found := findRecipe(state, started)
		if !found {
			return recipe.Recipe{}, fmt.Errorf("recipe %q is no longer displayed or saved", started.Name)
		}
		if !current.IsVideoGenerating {
			if current.VideoURL == "" && state.VideoError != "" {
				return current, fmt.Errorf("%s", state.VideoError)
			}
			return current, nil
		}
		if progress != nil {
			fmt.Fprint(progress, ".")
		}
	}
}

func findRecipe(state inbound.StudioState, target recipe.Recipe) (recipe.Recipe, bool) {
	if state.ActiveRecipe != nil && state.ActiveRecipe.SameAs(target) {
		return *state.ActiveRecipe, true
	}
	for _, r := range state.SavedRecipes {
		if r.SameAs(target) {
			return r, true
		}
	}
	return recipe.Recipe{}, false
}

func newImageCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Download the image of the active recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, name, err := ctx.client().download(cmd.Context(), "/active/image")
			if err != nil {
				return err
			}
			path := outPath
			if path == "" {
				path = name
			}
			if path == "" {
				path = "recipe.jpg"
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: the recipe name)")
	return cmd
}

func newSocialCommand(ctx *commandContext) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "social NAME",
		Short: "Write a social media post for a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Post string `json:"post"`
			}
			// without --lang the server falls back to the form language
			body := map[string]string{"recipeName": args[0]}
			if cmd.Flags().Changed("lang") {
				body["language"] = lang
			}
			if err := ctx.client().post(cmd.Context(), "/social", body, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, resp)
			}
			fmt.Fprintln(out, resp.Post)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Post language (default: the form language)")
	return cmd
}

func newShareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "share",
		Short: "Prepare an email with the active recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var email recipe.Email
			if err := ctx.client().get(cmd.Context(), "/share/email", &email); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *ctx.jsonFlag {
				return printJSON(out, email)
			}
			colorize := shouldColorize(out)
			fmt.Fprintln(out, paint("Subject: "+email.Subject, ansiBold, colorize))
			fmt.Fprintln(out)
			fmt.Fprintln(out, email.Body)
			fmt.Fprintln(out)
			fmt.Fprintln(out, paint(email.ComposeURL, ansiBlue, colorize))
			return nil
		},
	}
}
