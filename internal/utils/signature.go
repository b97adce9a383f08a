package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignHMAC returns the lowercase hex HMAC-SHA256 of body under secret.
func SignHMAC(secret string, body []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// VerifyHMAC reports whether sig is the hex HMAC-SHA256 of body.  The
// comparison is constant time and case insensitive on the hex digits.
func VerifyHMAC(secret string, body []byte, sig string) bool {
	sig = strings.ToLower(strings.TrimSpace(sig))
	if sig == "" {
		return false
	}
	return hmac.Equal([]byte(SignHMAC(secret, body)), []byte(sig))
}
