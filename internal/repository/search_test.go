package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%\_%`, containsPattern("_"))
	assert.Equal(t, `%50\% off%`, containsPattern("50% off"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
	assert.Equal(t, "%plain%", containsPattern("plain"))
}
