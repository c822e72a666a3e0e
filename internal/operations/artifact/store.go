package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/packwright/packwright/internal/operations/archive"
	"github.com/sirupsen/logrus"
)

const manifestFile = "manifest.json"

// Entry describes one stored artifact
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Job       string    `json:"job"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// Manifest is the persisted index of a run's artifact store
type Manifest struct {
	RunID   string  `json:"run_id"`
	Entries []Entry `json:"entries"`
}

// Store is a filesystem artifact store scoped to one pipeline run. It hands
// build outputs over to downstream jobs: files are copied in with a recorded
// checksum and verified on the way out.
type Store struct {
	mu    sync.Mutex
	dir   string
	runID string
	log   *logrus.Entry
}

// NewStore opens (or creates) the artifact store for a run under root
func NewStore(root, runID string) (*Store, error) {
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	return &Store{
		dir:   dir,
		runID: runID,
		log:   logrus.WithFields(logrus.Fields{"component": "artifact-store", "run_id": runID}),
	}, nil
}

// Dir returns the store directory
func (s *Store) Dir() string {
	return s.dir
}

// Upload copies the file into the store under the given artifact name and
// records it in the manifest. Names are unique within a run.
func (s *Store) Upload(job, name, srcPath string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, err := s.loadManifest()
	if err != nil {
		return nil, err
	}
	for _, e := range manifest.Entries {
		if e.Name == name {
			return nil, fmt.Errorf("artifact %q already uploaded", name)
		}
	}

	digest, err := archive.SHA256File(srcPath)
	if err != nil {
		return nil, err
	}

	dest := filepath.Join(s.dir, name)
	size, err := copyFile(srcPath, dest)
	if err != nil {
		return nil, fmt.Errorf("failed to store artifact %q: %w", name, err)
	}

	entry := Entry{
		ID:        uuid.New().String(),
		Name:      name,
		Job:       job,
		Size:      size,
		SHA256:    digest,
		CreatedAt: time.Now().UTC(),
	}
	manifest.Entries = append(manifest.Entries, entry)
	sort.Slice(manifest.Entries, func(i, j int) bool {
		return manifest.Entries[i].Name < manifest.Entries[j].Name
	})

	if err := s.saveManifest(manifest); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"name": name,
		"job":  job,
		"size": size,
	}).Info("Artifact uploaded")
	return &entry, nil
}

// Download copies a stored artifact into destDir after verifying its
// checksum, and returns the destination path
func (s *Store) Download(name, destDir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, err := s.loadManifest()
	if err != nil {
		return "", err
	}

	var entry *Entry
	for i := range manifest.Entries {
		if manifest.Entries[i].Name == name {
			entry = &manifest.Entries[i]
			break
		}
	}
	if entry == nil {
		return "", fmt.Errorf("artifact %q not found in store", name)
	}

	src := filepath.Join(s.dir, name)
	if err := archive.VerifyChecksum(src, entry.SHA256); err != nil {
		return "", fmt.Errorf("artifact %q is corrupt: %w", name, err)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	dest := filepath.Join(destDir, name)
	if _, err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("failed to download artifact %q: %w", name, err)
	}

	s.log.WithField("name", name).Debug("Artifact downloaded")
	return dest, nil
}

// List returns the manifest entries sorted by name
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, err := s.loadManifest()
	if err != nil {
		return nil, err
	}
	return manifest.Entries, nil
}

func (s *Store) loadManifest() (*Manifest, error) {
	path := filepath.Join(s.dir, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{RunID: s.runID}, nil
		}
		return nil, fmt.Errorf("failed to read artifact manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse artifact manifest: %w", err)
	}
	return &manifest, nil
}

func (s *Store) saveManifest(manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact manifest: %w", err)
	}
	path := filepath.Join(s.dir, manifestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact manifest: %w", err)
	}
	return nil
}

// copyFile copies src to dst and returns the number of bytes written
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	written, err := io.Copy(out, in)
	if err != nil {
		os.Remove(dst) // Clean up on failure
		return 0, err
	}

	if err := out.Sync(); err != nil {
		os.Remove(dst) // Clean up on failure
		return 0, err
	}
	return written, nil
}
