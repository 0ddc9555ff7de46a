package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrDuplicateName, "permission name already exists")
	wrapped := fmt.Errorf("create: %w", err)

	assert.True(t, stdErrors.Is(wrapped, ErrDuplicateName))
	assert.False(t, stdErrors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "permission name already exists", err.Message)
	assert.Equal(t, "name already exists", ErrDuplicateName.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("email", "email is invalid")
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "email is invalid", err.Fields["email"])
	assert.True(t, HasCode(err, ErrValidation.Code))
	assert.Nil(t, ErrValidation.Fields)
}
