package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoFrom(t *testing.T) {
	t.Parallel()

	settings := map[string]string{
		"vcs.revision": "0123456789abcdef",
		"vcs.time":     "2024-05-01T10:00:00Z",
	}

	dev := infoFrom("dev", unknownStr, unknownStr, settings)
	assert.Equal(t, "build-01234567", dev.Version)
	assert.Equal(t, "0123456789abcdef", dev.Commit)
	assert.Equal(t, "2024-05-01 10:00:00 UTC", dev.BuildDate)
	assert.Equal(t, runtime.Version(), dev.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, dev.Platform)

	release := infoFrom("v1.4.0", "abc", "2024-06-01T00:00:00Z", settings)
	assert.Equal(t, "v1.4.0", release.Version)
	assert.Equal(t, "abc", release.Commit)
	assert.Equal(t, "2024-06-01 00:00:00 UTC", release.BuildDate)

	bare := infoFrom("dev", unknownStr, unknownStr, nil)
	assert.Equal(t, "build-unknown", bare.Version)
	assert.Equal(t, unknownStr, bare.BuildDate)
}
