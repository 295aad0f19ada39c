package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/ports/inbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// fakeStudio answers the studio API with canned data and records requests
type fakeStudio struct {
	mu       sync.Mutex
	requests []recordedRequest
	state    inbound.StudioState
	routes   map[string]http.HandlerFunc
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

func newFakeStudio(t *testing.T) (*fakeStudio, *httptest.Server) {
	t.Helper()
	f := &fakeStudio{
		state:  inbound.StudioState{Form: recipe.DefaultForm(), SavedRecipes: []recipe.Recipe{}},
		routes: make(map[string]http.HandlerFunc),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
		})
		handler, ok := f.routes[r.Method+" "+r.URL.Path]
		state := f.state
		f.mu.Unlock()

		if ok {
			r.Body = io.NopCloser(bytes.NewReader(body))
			handler(w, r)
			return
		}
		if r.Method == http.MethodGet && r.URL.Path == studioPrefix+"/state" {
			respondJSON(w, http.StatusOK, state)
			return
		}
		respondJSON(w, http.StatusNotFound, apperrors.ErrorResponse{Error: apperrors.ErrorDetails{
			Code: apperrors.CodeNotFound, Message: "route not found",
		}})
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeStudio) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	f.routes[method+" "+studioPrefix+path] = h
	f.mu.Unlock()
}

func (f *fakeStudio) setState(state inbound.StudioState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

func (f *fakeStudio) last(method, path string) (recordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		req := f.requests[i]
		if req.Method == method && req.Path == studioPrefix+path {
			return req, true
		}
	}
	return recordedRequest{}, false
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runCLI(t *testing.T, serverURL string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--server", serverURL}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func sampleRecipe(name string) recipe.Recipe {
	return recipe.Recipe{
		ID:           uuid.New(),
		Name:         name,
		Description:  "A quick weeknight meal",
		PrepTime:     "10 minutes",
		CookTime:     "20 minutes",
		Servings:     "2 servings",
		Ingredients:  []string{"200 g rice", "1 onion"},
		Instructions: []string{"Rinse the rice", "Cook everything"},
		Nutrition: recipe.Nutrition{
			Calories: "450 kcal", Protein: "12g", Carbs: "80g", Fat: "9g", GlycemicIndex: "Medium",
		},
	}
}

func TestGenerateWithoutFlagsSendsNoBody(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodPost, "/generate", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sampleRecipe("Onion Rice"))
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "generate")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Onion Rice")
	assert.Contains(t, out, "Rinse the rice")
	req, ok := fake.last(http.MethodPost, "/generate")
	require.True(t, ok)
	assert.Empty(t, req.Body)
}

func TestGenerateWithFlagsOverlaysForm(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	state := inbound.StudioState{Form: recipe.DefaultForm()}
	state.Form.DietaryOptions = []recipe.DietaryOption{recipe.DietaryVegan}
	fake.setState(state)
	fake.handle(http.MethodPost, "/generate", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sampleRecipe("Tomato Soup"))
	})

	// Act
	_, _, err := runCLI(t, srv.URL, "generate", "-i", "tomatoes, basil", "--meal", "Soup", "--quick")

	// Assert
	require.NoError(t, err)
	req, ok := fake.last(http.MethodPost, "/generate")
	require.True(t, ok)

	var sent recipe.FormState
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.Equal(t, "tomatoes, basil", sent.Ingredients)
	assert.Equal(t, recipe.MealTypeSoup, sent.MealType)
	assert.True(t, sent.IsQuickMeal)
	assert.Equal(t, []recipe.DietaryOption{recipe.DietaryVegan}, sent.DietaryOptions, "unset flags keep the stored form")
}

func TestGenerateReportsServerError(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodPost, "/generate", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusBadRequest, apperrors.ErrorResponse{Error: apperrors.ErrorDetails{
			Code:    apperrors.CodeValidationFailed,
			Message: "Please enter some ingredients.",
		}})
	})

	// Act
	_, _, err := runCLI(t, srv.URL, "generate")

	// Assert
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, apperrors.CodeValidationFailed, apiErr.Code)
	assert.Equal(t, "Please enter some ingredients.", err.Error())
}

func TestShowRendersStateAndErrors(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	active := sampleRecipe("Onion Rice")
	active.Rating = 4
	fake.setState(inbound.StudioState{
		Form:         recipe.DefaultForm(),
		ActiveRecipe: &active,
		IsSaved:      true,
		ImageError:   "Image generation failed",
		VideoJobs:    []uuid.UUID{active.ID},
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "show")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "[Image] Image generation failed")
	assert.Contains(t, out, "Onion Rice")
	assert.Contains(t, out, "★★★★☆")
	assert.Contains(t, out, "In your collection")
	assert.Contains(t, out, active.ID.String())
}

func TestShowJSON(t *testing.T) {
	// Arrange
	_, srv := newFakeStudio(t)

	// Act
	out, _, err := runCLI(t, srv.URL, "--json", "show")

	// Assert
	require.NoError(t, err)
	var state inbound.StudioState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Nil(t, state.ActiveRecipe)
	assert.Equal(t, recipe.DefaultLanguage, state.Form.Language)
}

func TestSavedPassesQuery(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	saved := sampleRecipe("Pasta al Limone")
	at := time.Now().Add(-2 * time.Hour)
	saved.SavedAt = &at
	fake.handle(http.MethodGet, "/saved", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, []recipe.Recipe{saved})
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "saved", "--query", "lemon pasta")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Pasta al Limone")
	assert.Contains(t, out, "2 hours ago")
	req, ok := fake.last(http.MethodGet, "/saved")
	require.True(t, ok)
	assert.Equal(t, "q=lemon+pasta", req.Query)
}

func TestSelectAndDeleteEscapeNames(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodPost, "/saved/Mac & Cheese/select", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sampleRecipe("Mac & Cheese"))
	})
	fake.handle(http.MethodDelete, "/saved/Mac & Cheese", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Act
	selectOut, _, selectErr := runCLI(t, srv.URL, "select", "Mac & Cheese")
	deleteOut, _, deleteErr := runCLI(t, srv.URL, "delete", "Mac & Cheese")

	// Assert
	require.NoError(t, selectErr)
	require.NoError(t, deleteErr)
	assert.Contains(t, selectOut, "Mac & Cheese")
	assert.Contains(t, deleteOut, `Deleted "Mac & Cheese"`)
}

func TestRateValidatesLocally(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)

	// Act
	_, _, err := runCLI(t, srv.URL, "rate", "7")

	// Assert
	require.Error(t, err)
	_, sent := fake.last(http.MethodPost, "/active/rating")
	assert.False(t, sent)
}

func TestRateSendsRating(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodPost, "/active/rating", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		_ = json.NewDecoder(r.Body).Decode(&body)
		rated := sampleRecipe("Onion Rice")
		rated.Rating = body["rating"]
		respondJSON(w, http.StatusOK, rated)
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "rate", "3")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "★★★☆☆")
}

func TestNotesJoinsArguments(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodPut, "/saved/Onion Rice/notes", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sampleRecipe("Onion Rice"))
	})

	// Act
	_, _, err := runCLI(t, srv.URL, "notes", "Onion Rice", "more", "salt")

	// Assert
	require.NoError(t, err)
	req, ok := fake.last(http.MethodPut, "/saved/Onion Rice/notes")
	require.True(t, ok)
	assert.JSONEq(t, `{"notes":"more salt"}`, req.Body)
}

func TestVideoCancel(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	id := uuid.New()
	fake.handle(http.MethodDelete, "/videos/"+id.String(), func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "video", "--cancel", id.String())

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Video job cancelled")
}

func TestVideoStart(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	started := sampleRecipe("Onion Rice")
	started.IsVideoGenerating = true
	fake.handle(http.MethodPost, "/active/video", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusAccepted, started)
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "video")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Video generation started")
	assert.Contains(t, out, started.ID.String())
}

func TestImageWritesFile(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodGet, "/active/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Disposition", `attachment; filename="Onion_Rice.jpg"`)
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	})
	outPath := filepath.Join(t.TempDir(), "dish.jpg")

	// Act
	out, _, err := runCLI(t, srv.URL, "image", "--out", outPath)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, outPath)
	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
}

func TestSocialSendsLanguage(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodPost, "/social", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"post": "¡Qué rico! #ArrozConCebolla"})
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "social", "Onion Rice", "--lang", "es")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "#ArrozConCebolla")
	req, ok := fake.last(http.MethodPost, "/social")
	require.True(t, ok)
	assert.JSONEq(t, `{"recipeName":"Onion Rice","language":"es"}`, req.Body)
}

func TestSocialWithoutLangLeavesLanguageToServer(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodPost, "/social", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"post": "Dinner is served"})
	})

	// Act
	_, _, err := runCLI(t, srv.URL, "social", "Onion Rice")

	// Assert
	require.NoError(t, err)
	req, ok := fake.last(http.MethodPost, "/social")
	require.True(t, ok)
	assert.JSONEq(t, `{"recipeName":"Onion Rice"}`, req.Body)
}

func TestSharePrintsEmail(t *testing.T) {
	// Arrange
	fake, srv := newFakeStudio(t)
	fake.handle(http.MethodGet, "/share/email", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, recipe.Email{
			Subject:    "Recipe: Onion Rice",
			Body:       "Ingredients...",
			ComposeURL: "https://mail.google.com/mail/?view=cm",
		})
	})

	// Act
	out, _, err := runCLI(t, srv.URL, "share")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: Recipe: Onion Rice")
	assert.Contains(t, out, "https://mail.google.com/mail/?view=cm")
}

func TestServerUnavailable(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	// Act
	_, _, err := runCLI(t, url, "show")

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, errServerUnavailable)
}
