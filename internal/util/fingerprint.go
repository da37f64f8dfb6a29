package util

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// FileFingerprint returns the CRC32 of the whole file as 8 hex digits.
func FileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%08x", h.Sum32()), nil
}

// Fingerprint returns the CRC32 of data as 8 hex digits.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(data))
}
