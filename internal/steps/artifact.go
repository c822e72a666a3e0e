package steps

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/packwright/packwright/internal/pipeline"
)

// UploadArtifactHandler stores files into the run's artifact store. Without
// an explicit with.path it uploads the entry's archive and checksum, which
// is the build-to-release hand-off.
type UploadArtifactHandler struct {
	services *Services
}

func (h *UploadArtifactHandler) Handle(ctx context.Context, session *Session, step pipeline.Step) error {
	if h.services.Artifacts == nil {
		return fmt.Errorf("artifact store not configured")
	}

	var paths []string
	for _, p := range splitList(step.With["path"]) {
		paths = append(paths, session.Expand(p))
	}
	if len(paths) == 0 {
		if archivePath, ok := session.Outputs["archive"]; ok {
			paths = append(paths, archivePath)
		}
		if checksum, ok := session.Outputs["checksum"]; ok {
			paths = append(paths, checksum)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("upload-artifact step has nothing to upload: no archive output and no with.path")
	}

	for _, path := range paths {
		if _, err := h.services.Artifacts.Upload(session.Job, filepath.Base(path), path); err != nil {
			return err
		}
	}
	return nil
}

// DownloadArtifactHandler fetches every stored artifact into the job
// workspace
type DownloadArtifactHandler struct {
	services *Services
}

func (h *DownloadArtifactHandler) Handle(ctx context.Context, session *Session, step pipeline.Step) error {
	if h.services.Artifacts == nil {
		return fmt.Errorf("artifact store not configured")
	}

	destDir := step.With["path"]
	if destDir == "" {
		destDir = filepath.Join(h.services.DistDir, "artifacts")
	}
	destDir = session.Expand(destDir)

	entries, err := h.services.Artifacts.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("artifact store is empty, nothing to download")
	}

	for _, entry := range entries {
		path, err := h.services.Artifacts.Download(entry.Name, destDir)
		if err != nil {
			return err
		}
		session.Downloads = append(session.Downloads, path)
	}
	return nil
}
