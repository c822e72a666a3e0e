package pipeline

import (
	"fmt"
	"runtime"
)

// MatrixEntry is one expanded platform/arch combination of a job matrix
type MatrixEntry struct {
	Platform string
	Arch     string
}

// Slug returns the entry identifier used in file names and logs
func (e MatrixEntry) Slug() string {
	return e.Platform + "-" + e.Arch
}

// BinaryExt returns the executable extension for the entry's platform
func (e MatrixEntry) BinaryExt() string {
	if e.Platform == "windows" {
		return ".exe"
	}
	return ""
}

// ArchiveFormat returns the archive format used for the entry's platform.
// Windows builds ship as zip, everything else as tar.gz.
func (e MatrixEntry) ArchiveFormat() string {
	if e.Platform == "windows" {
		return "zip"
	}
	return "tar.gz"
}

// Expand returns the matrix entries of the job: the cross product of the
// platform and arch lists minus excludes. A job without a matrix runs once
// for the host platform.
func (j *Job) Expand() ([]MatrixEntry, error) {
	if j.Matrix == nil {
		return []MatrixEntry{{Platform: runtime.GOOS, Arch: runtime.GOARCH}}, nil
	}

	if len(j.Matrix.Platform) == 0 {
		return nil, fmt.Errorf("job %q matrix has no platforms", j.Name)
	}
	if len(j.Matrix.Arch) == 0 {
		return nil, fmt.Errorf("job %q matrix has no architectures", j.Name)
	}

	excluded := make(map[MatrixEntry]struct{}, len(j.Matrix.Exclude))
	for _, ex := range j.Matrix.Exclude {
		if ex.Platform == "" || ex.Arch == "" {
			return nil, fmt.Errorf("job %q matrix exclude needs both platform and arch", j.Name)
		}
		excluded[MatrixEntry{Platform: ex.Platform, Arch: ex.Arch}] = struct{}{}
	}

	var entries []MatrixEntry
	for _, platform := range j.Matrix.Platform {
		for _, arch := range j.Matrix.Arch {
			entry := MatrixEntry{Platform: platform, Arch: arch}
			if _, skip := excluded[entry]; skip {
				continue
			}
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("job %q matrix expands to no entries", j.Name)
	}

	return entries, nil
}
