package recipe

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const gmailComposeBase = "https://mail.google.com/mail/?view=cm&fs=1"

// EmailLabels are the translated strings used to build a shareable email
type EmailLabels struct {
	SubjectPrefix      string
	IngredientsHeader  string
	InstructionsHeader string
	BodyPlaceholder    string
}

// Email is the hand-off for sharing a recipe by mail. Body is meant for the
// clipboard; ComposeURL opens a prefilled Gmail draft carrying the placeholder.
type Email struct {
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	ComposeURL string `json:"composeUrl"`
}

// BuildEmail renders the recipe as a plain-text email
func BuildEmail(r Recipe, recipient string, labels EmailLabels) Email {
	subject := fmt.Sprintf("%s: %s", labels.SubjectPrefix, r.Name)

	var b strings.Builder
	b.WriteString(r.Description)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "--- %s ---\n", labels.IngredientsHeader)
	for i, ing := range r.Ingredients {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s", ing)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "--- %s ---\n", labels.InstructionsHeader)
	for i, step := range r.Instructions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, step)
	}

	composeURL := gmailComposeBase +
		"&to=" + encodeComponent(recipient) +
		"&su=" + encodeComponent(subject) +
		"&body=" + encodeComponent(labels.BodyPlaceholder)

	return Email{Subject: subject, Body: b.String(), ComposeURL: composeURL}
}

// encodeComponent escapes like encodeURIComponent: spaces become %20
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DownloadName is the file name offered when downloading recipe media,
// e.g. "Tomato_Soup.jpg".
func DownloadName(recipeName, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return whitespaceRun.ReplaceAllString(recipeName, "_") + ext
}

// Hashtag condenses the recipe name into a single hashtag word
func Hashtag(recipeName string) string {
	return "#" + whitespaceRun.ReplaceAllString(recipeName, "")
}
