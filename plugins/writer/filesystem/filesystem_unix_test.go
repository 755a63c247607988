//go:build !windows

package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"expsplit/pkg/contract"
)

// TestMapPathInvalidUnix Unix-specific path validation
func TestMapPathInvalidUnix(t *testing.T) {
	w, _ := New(&Options{OutputDir: t.TempDir()})
	for _, id := range []string{"/abs", "..", ".", "a/../../b"} {
		_, err := w.mapPath(contract.ArtifactID(id))
		assert.ErrorIs(t, err, contract.ErrPathInvalid, "id %s", id)
	}
}
