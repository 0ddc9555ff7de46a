package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func pqUniqueErr() error {
	return &pq.Error{Code: pqUniqueViolation, Message: "duplicate key value violates unique constraint"}
}

func pqForeignKeyErr() error {
	return &pq.Error{Code: pqForeignKeyViolation, Message: "violates foreign key constraint"}
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(pqUniqueErr()), ErrDuplicate)
	assert.ErrorIs(t, translate(pqForeignKeyErr()), ErrReferenced)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}
