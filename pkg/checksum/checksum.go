// Package checksum computes the streaming SHA-256 digests recorded in
// backup manifests.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// chunkSize bounds the read buffer so arbitrarily large dump files never
// need to fit in memory. The digest is independent of this value.
const chunkSize = 64 * 1024

// Sum returns the lowercase hex SHA-256 digest of the file at path.
func Sum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	defer file.Close()

	hash := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(hash, file, buf); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
