package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/inbound"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stars renders a 1-5 rating, or a dash when unrated
func stars(rating int) string {
	if rating < 1 || rating > 5 {
		return "-"
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

func mediaSummary(r recipe.Recipe) string {
	var parts []string
	if r.HasImage() {
		parts = append(parts, "image")
	}
	switch {
	case r.HasVideo():
		parts = append(parts, "video")
	case r.IsVideoGenerating:
		parts = append(parts, "video…")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func renderRecipe(out io.Writer, r recipe.Recipe, colorize bool) {
	fmt.Fprintln(out, paint(r.Name, ansiBold, colorize))
	if r.Description != "" {
		fmt.Fprintln(out, r.Description)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderTable(
		[]string{"Prep", "Cook", "Servings", "Rating", "Media"},
		[][]string{{r.PrepTime, r.CookTime, r.Servings, stars(r.Rating), mediaSummary(r)}},
		nil,
	))

	fmt.Fprintln(out, paint("Ingredients", ansiBlue, colorize))
	for _, item := range r.Ingredients {
		fmt.Fprintf(out, "  • %s\n", item)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, paint("Instructions", ansiBlue, colorize))
	for i, step := range r.Instructions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintln(out)

	n := r.Nutrition
	fmt.Fprintln(out, renderTable(
		[]string{"Calories", "Protein", "Carbs", "Fat", "Glycemic index"},
		[][]string{{n.Calories, n.Protein, n.Carbs, n.Fat, n.GlycemicIndex}},
		nil,
	))

	if r.Notes != "" {
		fmt.Fprintln(out, paint("Notes", ansiBlue, colorize))
		fmt.Fprintf(out, "  %s\n", r.Notes)
	}
	if r.SavedAt != nil {
		fmt.Fprintf(out, "Saved %s\n", humanize.Time(*r.SavedAt))
	}
}

func renderSaved(out io.Writer, recipes []recipe.Recipe) {
	if len(recipes) == 0 {
		fmt.Fprintln(out, "No saved recipes.")
		return
	}
	rows := make([][]string, 0, len(recipes))
	for _, r := range recipes {
		saved := "-"
		if r.SavedAt != nil {
			saved = humanize.Time(*r.SavedAt)
		}
		rows = append(rows, []string{r.Name, stars(r.Rating), mediaSummary(r), saved})
	}
	fmt.Fprintln(out, renderTable([]string{"Name", "Rating", "Media", "Saved"}, rows, nil))
}

func renderForm(out io.Writer, form recipe.FormState) {
	join := func(values []string) string {
		if len(values) == 0 {
			return "-"
		}
		return strings.Join(values, ", ")
	}
	dietary := make([]string, len(form.DietaryOptions))
	for i, d := range form.DietaryOptions {
		dietary[i] = string(d)
	}
	methods := make([]string, len(form.CookingMethods))
	for i, m := range form.CookingMethods {
		methods[i] = string(m)
	}
	ingredients := form.Ingredients
	if strings.TrimSpace(ingredients) == "" {
		ingredients = "-"
	}
	quick := "no"
	if form.IsQuickMeal {
		quick = "yes"
	}

	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, [][]string{
		{"Ingredients", ingredients},
		{"Meal type", string(form.MealType)},
		{"Dietary", join(dietary)},
		{"Methods", join(methods)},
		{"Language", fmt.Sprintf("%s (%s)", form.Language.OrDefault().NativeName(), form.Language.OrDefault())},
		{"Quick meal", quick},
	}, nil))
}

func renderState(out io.Writer, state inbound.StudioState, colorize bool) {
	for _, msg := range []struct {
		label, text string
	}{
		{"Error", state.Error},
		{"Image", state.ImageError},
		{"Video", state.VideoError},
	} {
		if msg.text != "" {
			fmt.Fprintln(out, paint(fmt.Sprintf("[%s] %s", msg.label, msg.text), ansiRed, colorize))
		}
	}
	if state.IsLoading {
		fmt.Fprintln(out, paint("Generating a recipe…", ansiYellow, colorize))
	}

	if state.ActiveRecipe == nil {
		fmt.Fprintln(out, "No active recipe. Run `studio generate` to create one.")
	} else {
		renderRecipe(out, *state.ActiveRecipe, colorize)
		if state.IsSaved {
			fmt.Fprintln(out, paint("In your collection", ansiGreen, colorize))
		}
	}

	if len(state.VideoJobs) > 0 {
		jobs := make([]string, len(state.VideoJobs))
		for i, id := range state.VideoJobs {
			jobs[i] = id.String()
		}
		fmt.Fprintf(out, "Video jobs in flight: %s\n", strings.Join(jobs, ", "))
	}
	if state.VideoViewer.Open {
		fmt.Fprintf(out, "Watching %s: %s\n", state.VideoViewer.RecipeName, state.VideoViewer.URL)
	}
}
