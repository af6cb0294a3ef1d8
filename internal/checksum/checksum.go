package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first n hex characters of the digest of the joined parts.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Short(n int, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if n <= 0 || n > len(sum) {
		return sum
	}
	return sum[:n]
}
