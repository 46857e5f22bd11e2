package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const signatureVersion = "v0"

// sign computes `v0=hex(hmac_sha256(secret, "v0:{timestamp}:{body}"))`.
func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureVersion + ":" + timestamp + ":"))
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret, timestamp string, body []byte, signature string) bool {
	if timestamp == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(sign(secret, timestamp, body)), []byte(signature))
}

// encryptToken answers an endpoint validation challenge.
func encryptToken(secret, plainToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plainToken))
	return hex.EncodeToString(mac.Sum(nil))
}
