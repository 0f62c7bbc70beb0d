package misc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignSHA256 returns the hex-encoded HMAC-SHA256 of value under key. It is
// carried in the HashSHA256 header of interprocess report messages.
func SignSHA256(value []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(value)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether signature matches value under key,
// comparing in constant time.
func ValidSignature(value []byte, key, signature string) bool {
	want := SignSHA256(value, key)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
