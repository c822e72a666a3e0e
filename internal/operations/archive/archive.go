package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

// Supported archive formats
const (
	FormatZip   = "zip"
	FormatTarGz = "tar.gz"
)

// Ext returns the file extension for an archive format
func Ext(format string) (string, error) {
	switch format {
	case FormatZip:
		return ".zip", nil
	case FormatTarGz:
		return ".tar.gz", nil
	default:
		return "", fmt.Errorf("unsupported archive format: %q", format)
	}
}

// Create packs the given files into dest using the requested format. Every
// entry is placed under the prefix directory, file modes are preserved and
// entries are written in sorted order.
func Create(format, dest, prefix string, files []string) error {
	log := logrus.WithFields(logrus.Fields{
		"component": "archive",
		"dest":      dest,
		"format":    format,
	})

	if len(files) == 0 {
		return fmt.Errorf("no files to archive")
	}

	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	var err error
	switch format {
	case FormatZip:
		err = writeZip(dest, prefix, sorted)
	case FormatTarGz:
		err = writeTarGz(dest, prefix, sorted)
	default:
		err = fmt.Errorf("unsupported archive format: %q", format)
	}
	if err != nil {
		os.Remove(dest) // Clean up on failure
		return err
	}

	log.WithField("files", len(sorted)).Debug("Archive created")
	return nil
}

func writeZip(dest, prefix string, files []string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addZipEntry(zw, prefix, file); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return out.Sync()
}

func addZipEntry(zw *zip.Writer, prefix, file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", file, err)
	}
	header.Name = entryName(prefix, file)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry for %s: %w", file, err)
	}

	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer src.Close()

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to write zip entry for %s: %w", file, err)
	}
	return nil
}

func writeTarGz(dest, prefix string, files []string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	tw := tar.NewWriter(gzw)

	for _, file := range files {
		if err := addTarEntry(tw, prefix, file); err != nil {
			tw.Close()
			gzw.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return out.Sync()
}

func addTarEntry(tw *tar.Writer, prefix, file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", file, err)
	}
	header.Name = entryName(prefix, file)

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", file, err)
	}

	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer src.Close()

	if _, err := io.Copy(tw, src); err != nil {
		return fmt.Errorf("failed to write tar entry for %s: %w", file, err)
	}
	return nil
}

// entryName places the file's base name under the prefix directory
func entryName(prefix, file string) string {
	name := filepath.Base(file)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
