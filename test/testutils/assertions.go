// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// RecipeAssertions provides recipe-specific assertion methods
type RecipeAssertions struct {
	t *testing.T
}

// NewRecipeAssertions creates a new recipe assertions helper
func NewRecipeAssertions(t *testing.T) *RecipeAssertions {
	return &RecipeAssertions{t: t}
}

// Complete asserts that a recipe has an id and every required field
func (ra *RecipeAssertions) Complete(r *recipe.Recipe, msgAndArgs ...interface{}) {
	require.NotNil(ra.t, r, "Recipe should not be nil")
	assert.NotEqual(ra.t, uuid.Nil, r.ID, "Recipe should have a valid ID")
	assert.Empty(ra.t, r.MissingFields(), msgAndArgs...)
}

// Fresh asserts that a recipe carries no lifecycle state yet
func (ra *RecipeAssertions) Fresh(r *recipe.Recipe, msgAndArgs ...interface{}) {
	require.NotNil(ra.t, r, "Recipe should not be nil")
	assert.Empty(ra.t, r.ImageURL, msgAndArgs...)
	assert.Empty(ra.t, r.VideoURL, msgAndArgs...)
	assert.False(ra.t, r.IsVideoGenerating, msgAndArgs...)
	assert.Zero(ra.t, r.Rating, msgAndArgs...)
	assert.Empty(ra.t, r.Notes, msgAndArgs...)
	assert.Nil(ra.t, r.SavedAt, msgAndArgs...)
}

// ErrorCode asserts that err is an application error with code
func (ra *RecipeAssertions) ErrorCode(err error, code apperrors.ErrorCode, msgAndArgs ...interface{}) {
	require.Error(ra.t, err, msgAndArgs...)
	assert.Equal(ra.t, code, apperrors.GetCode(err), msgAndArgs...)
}

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(resp *http.Response, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, resp.StatusCode, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(resp *http.Response, target interface{}, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	contentType := resp.Header.Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	err := json.NewDecoder(resp.Body).Decode(target)
	assert.NoError(ha.t, err, msgAndArgs...)
}

// GatewayError asserts the gateway's {"error": "..."} body
func (ha *HTTPAssertions) GatewayError(resp *http.Response, expectedMessage string, msgAndArgs ...interface{}) {
	var body map[string]interface{}
	ha.JSONResponse(resp, &body)

	errorMsg, exists := body["error"]
	require.True(ha.t, exists, "Response should contain error field")
	assert.Equal(ha.t, expectedMessage, errorMsg, msgAndArgs...)
}

// APIError asserts the studio's structured error body and returns it
func (ha *HTTPAssertions) APIError(resp *http.Response, code apperrors.ErrorCode, msgAndArgs ...interface{}) apperrors.ErrorDetails {
	var body apperrors.ErrorResponse
	ha.JSONResponse(resp, &body)
	assert.Equal(ha.t, code, body.Error.Code, msgAndArgs...)
	return body.Error
}

// HasHeader asserts that a header exists
func (ha *HTTPAssertions) HasHeader(resp *http.Response, headerName string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	_, exists := resp.Header[http.CanonicalHeaderKey(headerName)]
	assert.True(ha.t, exists, "Response should have header %s", headerName)
}

// SecurityHeaders asserts that security headers are present
func (ha *HTTPAssertions) SecurityHeaders(resp *http.Response, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	for _, header := range []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Referrer-Policy",
	} {
		ha.HasHeader(resp, header, "Security header %s should be present", header)
	}
}
