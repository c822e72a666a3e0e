package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SHA256File returns the hex encoded sha256 digest of a file
func SHA256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyChecksum verifies the sha256 digest of a file against the expected
// value
func VerifyChecksum(path, expectedSHA256 string) error {
	actual, err := SHA256File(path)
	if err != nil {
		return err
	}
	if actual != expectedSHA256 {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedSHA256, actual)
	}
	return nil
}

// WriteChecksumFile writes the conventional "<digest>  <name>" checksum file
// next to the archive and returns its path
func WriteChecksumFile(archivePath string) (string, error) {
	digest, err := SHA256File(archivePath)
	if err != nil {
		return "", err
	}

	dest := archivePath + ".sha256"
	content := fmt.Sprintf("%s  %s\n", digest, filepath.Base(archivePath))
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return dest, nil
}
