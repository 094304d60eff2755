package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashValue returns the hex SHA-256 of v's JSON encoding and the encoding's
// length. Ordered maps encode in insertion order, so equal documents hash
// equally. A nil value hashes to "".
func HashValue(v any) (string, int, error) {
	if v == nil {
		return "", 0, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", 0, err
	}
	return HashBytes(data), len(data), nil
}

// HashBytes returns the hex SHA-256 of data, or "" for empty input.
func HashBytes(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
