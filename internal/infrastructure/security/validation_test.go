package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

type notesRequest struct {
	Notes    string `json:"notes" validate:"max=20,no_markup"`
	Language string `json:"language" validate:"recipe_language"`
	Name     string `json:"recipeName" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	v := NewValidationService()

	tests := []struct {
		name   string
		input  notesRequest
		fields []string
	}{
		{name: "valid", input: notesRequest{Notes: "less salt", Language: "fr", Name: "Soup"}},
		{name: "empty language allowed", input: notesRequest{Name: "Soup"}},
		{name: "missing name", input: notesRequest{}, fields: []string{"recipeName"}},
		{name: "unknown language", input: notesRequest{Language: "xx", Name: "Soup"}, fields: []string{"language"}},
		{name: "markup", input: notesRequest{Notes: "<script>x", Name: "Soup"}, fields: []string{"notes"}},
		{name: "too long", input: notesRequest{Notes: "aaaaaaaaaaaaaaaaaaaaaaaaa", Name: "Soup"}, fields: []string{"notes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

			fieldErrs, ok := appErr.Metadata["validation_errors"].(apperrors.FieldErrors)
			require.True(t, ok)
			var got []string
			for _, fe := range fieldErrs {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}
