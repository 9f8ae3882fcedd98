package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/sessionfsd/pkg/fileio"
)

func TestDeriveSnapshotPathUsesOriginalPathPrefix(t *testing.T) {
	fake := fileio.NewFake()
	path := deriveSnapshotPath(fake, "/srv/sessions/a/file.txt", 7, "")
	assert.True(t, strings.HasPrefix(path, "/srv/sessions/a/file.txt_incarnation_7_"))
}

func TestDeriveSnapshotPathFallsBackWhenTooLong(t *testing.T) {
	fake := fileio.NewFake()
	fake.SetMaxPathLength(20)
	path := deriveSnapshotPath(fake, "/srv/sessions/a/a-very-long-file-name.txt", 7, "")
	assert.True(t, strings.HasPrefix(path, "/var/tmp/7_"))
}

func TestDeriveSnapshotPathIsUniquePerCall(t *testing.T) {
	fake := fileio.NewFake()
	a := deriveSnapshotPath(fake, "/srv/sessions/a/file.txt", 1, "")
	b := deriveSnapshotPath(fake, "/srv/sessions/a/file.txt", 1, "")
	assert.NotEqual(t, a, b)
}

func TestDeriveSnapshotPathHonorsConfiguredFallbackDir(t *testing.T) {
	fake := fileio.NewFake()
	fake.SetMaxPathLength(20)
	path := deriveSnapshotPath(fake, "/srv/sessions/a/a-very-long-file-name.txt", 7, "/srv/snapshots")
	assert.True(t, strings.HasPrefix(path, "/srv/snapshots/7_"))
}
