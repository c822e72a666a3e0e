package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/packwright/packwright/internal/operations/archive"
	"github.com/packwright/packwright/internal/pipeline"
)

const defaultArchiveName = "{app}-{version}-{platform}-{arch}"

// ArchiveHandler packs the entry's build output (plus any configured extra
// files) into one archive per matrix entry and writes a checksum file next
// to it. The format follows the entry's platform unless overridden.
type ArchiveHandler struct {
	services *Services
}

func (h *ArchiveHandler) Handle(ctx context.Context, session *Session, step pipeline.Step) error {
	var files []string
	if binary, ok := session.Outputs["binary"]; ok {
		files = append(files, binary)
	}
	for _, extra := range splitList(step.With["files"]) {
		files = append(files, session.Expand(extra))
	}
	if len(files) == 0 {
		return fmt.Errorf("archive step has nothing to pack: no build output and no with.files")
	}

	format := step.With["format"]
	if format == "" {
		format = session.Entry.ArchiveFormat()
	}
	ext, err := archive.Ext(format)
	if err != nil {
		return err
	}

	name := step.With["name"]
	if name == "" {
		name = defaultArchiveName
	}
	name = session.Expand(name)
	dest := filepath.Join(h.services.DistDir, name+ext)

	if err := archive.Create(format, dest, name, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	checksum, err := archive.WriteChecksumFile(dest)
	if err != nil {
		return err
	}

	session.Outputs["archive"] = dest
	session.Outputs["checksum"] = checksum
	return nil
}

// splitList splits a comma separated with-value into trimmed items
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
