package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "($1, $2)", Placeholders(1, 2))
	assert.Equal(t, "($1, $2), ($3, $4), ($5, $6)", Placeholders(3, 2))
	assert.Equal(t, "", Placeholders(0, 2))
}
