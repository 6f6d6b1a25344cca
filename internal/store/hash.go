package store

import (
	"crypto/sha256"
	"fmt"
)

// ContentHash returns the hex SHA-256 of src. Reports are cached under it.
func ContentHash(src []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(src))
}
