package status

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRunLock(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "status")

	first, err := AcquireRunLock(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, LockFileName))

	_, err = AcquireRunLock(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, first.Release())

	second, err := AcquireRunLock(dir)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
