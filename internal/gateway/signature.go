package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
)

// SignatureVerifier authenticates gateway callbacks.
type SignatureVerifier struct {
	secret        []byte
	allowUnsigned bool
	logger        *slog.Logger
}

// NewSignatureVerifier builds a verifier. allowUnsigned must already account for the
// environment: callers pass true only outside production.
func NewSignatureVerifier(secret string, allowUnsigned bool, logger *slog.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		secret:        []byte(secret),
		allowUnsigned: allowUnsigned,
		logger:        logger,
	}
}

// Sign returns base64(HMAC-SHA256(secret, timestamp || body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (v *SignatureVerifier) VerifyCallback(timestamp string, rawBody []byte, signature string) bool {
	if len(v.secret) == 0 {
		if v.allowUnsigned {
			v.logger.Warn("webhook secret not configured, accepting unsigned callback")
			return true
		}
		v.logger.Error("webhook secret not configured, rejecting callback")
		return false
	}

	expected := Sign(string(v.secret), timestamp, rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}
