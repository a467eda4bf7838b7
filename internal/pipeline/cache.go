package pipeline

import (
	"os"
	"path/filepath"
)

// ArtifactStore resolves and checks artifact locations on the filesystem.
//
// The cache contract is existence-only: a file at the resolved path means the
// artifact is done and will be reused as-is. Nothing validates contents or
// detects staleness, so changing a classification spec without deleting the
// cached file silently yields stale results. The opt-in versioned layout
// nests artifacts under a config-digest directory, which makes a config
// change land in a fresh directory instead; the default stays byte-compatible
// with the original flat layout.
type ArtifactStore struct {
	versioned bool
	digest    string
}

// NewArtifactStore creates a store. digest is only consulted when versioned
// is true.
func NewArtifactStore(versioned bool, digest string) *ArtifactStore {
	return &ArtifactStore{versioned: versioned, digest: digest}
}

// Resolve maps a configured artifact path to its on-disk location.
func (s *ArtifactStore) Resolve(path string) string {
	if !s.versioned {
		return path
	}
	return filepath.Join(filepath.Dir(path), "v-"+s.digest, filepath.Base(path))
}

// Exists reports whether the artifact file is present. This is the sole
// cache-hit signal.
func (s *ArtifactStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Prepare creates the artifact's parent directory.
func (s *ArtifactStore) Prepare(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
