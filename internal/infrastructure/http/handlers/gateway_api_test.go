package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/infrastructure/gateway"
	"github.com/alchemorsel/studio/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/studio/internal/infrastructure/security"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
	"github.com/alchemorsel/studio/test/testutils"
)

func newGatewayServer(t *testing.T, gw *testutils.MockGateway) *httptest.Server {
	t.Helper()
	h := handlers.NewGatewayHandlers(gw, security.NewValidationService(), zaptest.NewLogger(t))
	r := chi.NewRouter()
	h.Routes(func(pattern string, handler http.HandlerFunc) { r.HandleFunc(pattern, handler) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGatewayHandlers_PostOnly(t *testing.T) {
	srv := newGatewayServer(t, testutils.NewMockGateway())
	ha := testutils.NewHTTPAssertions(t)

	for _, path := range []string{
		gateway.PathGenerateRecipe,
		gateway.PathGenerateImage,
		gateway.PathGenerateVideo,
		gateway.PathVideoStatus,
		gateway.PathVideoFile,
		gateway.PathGenerateSocialPost,
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()

			ha.StatusCode(resp, http.StatusMethodNotAllowed)
			ha.GatewayError(resp, gateway.MsgPostOnly)
		})
	}
}

func TestGatewayHandlers_GenerateRecipe(t *testing.T) {
	// Arrange
	gw := testutils.NewMockGateway()
	generated := testutils.NewRecipeBuilder().WithName("Tomato Soup").Build()
	gw.On("CreateRecipe", mock.Anything, mock.MatchedBy(func(f recipe.FormState) bool {
		return f.Ingredients == "tomato" && f.Language == recipe.LanguageGerman
	})).Return(&generated, nil)
	srv := newGatewayServer(t, gw)

	// Act
	resp := postJSON(t, srv.URL+gateway.PathGenerateRecipe, map[string]interface{}{
		"ingredients": "tomato",
		"language":    "de",
	})

	// Assert
	ha := testutils.NewHTTPAssertions(t)
	ha.StatusCode(resp, http.StatusOK)
	var got recipe.Recipe
	ha.JSONResponse(resp, &got)
	assert.Equal(t, "Tomato Soup", got.Name)
	gw.AssertExpectations(t)
}

func TestGatewayHandlers_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperrors.NewValidationError("recipeName is required"), http.StatusBadRequest, "recipeName is required"},
		{"gateway", apperrors.NewGatewayError("API_KEY is not set", nil), http.StatusInternalServerError, "API_KEY is not set"},
		{"schema", apperrors.NewSchemaError("bad"), http.StatusInternalServerError, "Response did not match the expected schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := testutils.NewMockGateway()
			gw.On("CreateImage", mock.Anything, mock.Anything).Return("", tt.err)
			srv := newGatewayServer(t, gw)

			resp := postJSON(t, srv.URL+gateway.PathGenerateImage, outbound.ImageRequest{RecipeName: "Soup"})

			ha := testutils.NewHTTPAssertions(t)
			ha.StatusCode(resp, tt.wantStatus)
			var body gateway.ErrorBody
			ha.JSONResponse(resp, &body)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestGatewayHandlers_ValidatesBody(t *testing.T) {
	gw := testutils.NewMockGateway()
	srv := newGatewayServer(t, gw)

	t.Run("missing field", func(t *testing.T) {
		resp := postJSON(t, srv.URL+gateway.PathGenerateImage, map[string]string{"description": "x"})
		testutils.NewHTTPAssertions(t).StatusCode(resp, http.StatusBadRequest)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, err := http.Post(srv.URL+gateway.PathGenerateImage, "application/json", bytes.NewBufferString("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		testutils.NewHTTPAssertions(t).StatusCode(resp, http.StatusBadRequest)
	})

	gw.AssertNotCalled(t, "CreateImage", mock.Anything, mock.Anything)
}

func TestGatewayHandlers_GenerateImage(t *testing.T) {
	gw := testutils.NewMockGateway()
	gw.On("CreateImage", mock.Anything, outbound.ImageRequest{RecipeName: "Soup", Description: "hot"}).
		Return(testutils.SampleImageURL, nil)
	srv := newGatewayServer(t, gw)

	resp := postJSON(t, srv.URL+gateway.PathGenerateImage, outbound.ImageRequest{RecipeName: "Soup", Description: "hot"})

	ha := testutils.NewHTTPAssertions(t)
	ha.StatusCode(resp, http.StatusOK)
	var body gateway.ImageResponse
	ha.JSONResponse(resp, &body)
	assert.Equal(t, testutils.SampleImageURL, body.ImageURL)
}

func TestGatewayHandlers_VideoFlow(t *testing.T) {
	gw := testutils.NewMockGateway()
	started := &outbound.VideoOperation{Name: "operations/1"}
	done := &outbound.VideoOperation{
		Name: "operations/1",
		Done: true,
		Response: &outbound.VideoOperationResponse{GeneratedVideos: []outbound.GeneratedVideo{
			{Video: outbound.VideoFile{URI: "https://files.example/v1"}},
		}},
	}
	gw.On("InitiateVideo", mock.Anything, mock.Anything).Return(started, nil)
	gw.On("PollVideo", mock.Anything, mock.MatchedBy(func(op *outbound.VideoOperation) bool {
		return op.Name == "operations/1"
	})).Return(done, nil)
	gw.On("FetchVideoArtifact", mock.Anything, "https://files.example/v1").
		Return(testutils.Artifact([]byte("mp4-bytes")), nil)
	srv := newGatewayServer(t, gw)
	ha := testutils.NewHTTPAssertions(t)

	t.Run("initiate", func(t *testing.T) {
		resp := postJSON(t, srv.URL+gateway.PathGenerateVideo, outbound.VideoRequest{
			RecipeName: "Soup", Base64ImageDataURL: testutils.SampleImageURL,
		})
		ha.StatusCode(resp, http.StatusOK)
		var op outbound.VideoOperation
		ha.JSONResponse(resp, &op)
		assert.Equal(t, "operations/1", op.Name)
		assert.False(t, op.Done)
	})

	t.Run("status", func(t *testing.T) {
		resp := postJSON(t, srv.URL+gateway.PathVideoStatus, gateway.VideoStatusRequest{Operation: started})
		ha.StatusCode(resp, http.StatusOK)
		var op outbound.VideoOperation
		ha.JSONResponse(resp, &op)
		assert.True(t, op.Done)
		assert.Equal(t, "https://files.example/v1", op.DownloadLink())
	})

	t.Run("file", func(t *testing.T) {
		resp := postJSON(t, srv.URL+gateway.PathVideoFile, gateway.VideoFileRequest{DownloadLink: "https://files.example/v1"})
		ha.StatusCode(resp, http.StatusOK)
		assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
		var buf bytes.Buffer
		_, err := buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "mp4-bytes", buf.String())
	})

	t.Run("file without link", func(t *testing.T) {
		resp := postJSON(t, srv.URL+gateway.PathVideoFile, map[string]string{})
		ha.StatusCode(resp, http.StatusBadRequest)
		ha.GatewayError(resp, "downloadLink is required.")
	})
}

func TestGatewayHandlers_SocialPost(t *testing.T) {
	gw := testutils.NewMockGateway()
	gw.On("CreateSocialPost", mock.Anything, mock.MatchedBy(func(req outbound.SocialPostRequest) bool {
		return req.Language == recipe.DefaultLanguage && req.Recipe.Name == "Soup"
	})).Return("Try this! #Soup", nil)
	srv := newGatewayServer(t, gw)

	resp := postJSON(t, srv.URL+gateway.PathGenerateSocialPost, map[string]interface{}{
		"recipe": map[string]interface{}{"recipeName": "Soup"},
	})

	ha := testutils.NewHTTPAssertions(t)
	ha.StatusCode(resp, http.StatusOK)
	var body gateway.SocialPostResponse
	ha.JSONResponse(resp, &body)
	assert.Equal(t, "Try this! #Soup", body.Post)
}
