package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
)

// SignatureHeader carries the hex HMAC-SHA256 digest Notion computes
// over the raw request body.
const SignatureHeader = "X-Notion-Signature"

// VerifyNotionSignature checks the webhook signature before the handler
// runs. An empty secret disables verification. A missing signature is
// rejected with 401, a mismatched one with 403. The body is re-buffered
// so the handler can still read it.
func VerifyNotionSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			sig := r.Header.Get(SignatureHeader)
			if sig == "" {
				WriteError(w, http.StatusUnauthorized, "Missing Notion signature")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "Unreadable request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write(body)
			expected := hex.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(expected), []byte(sig)) {
				WriteError(w, http.StatusForbidden, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
