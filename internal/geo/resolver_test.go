package geo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenMaxMind_MissingFile(t *testing.T) {
	m, err := OpenMaxMind(filepath.Join(t.TempDir(), "missing.mmdb"))
	assert.Error(t, err)
	assert.Nil(t, m)
}
