package middleware

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/legal-directory-api/internal/pkg/secure"
	"go.uber.org/zap"
)

const (
	encryptedField = "encrypted"
	maxBodyBytes   = 1 << 20
	minBlobLen     = 20
)

var errNotObject = errors.New("decrypted payload is not a JSON object")

// Decrypt unwraps an "encrypted" body field of the form
// base64(iv):base64(ciphertext) into ordinary request fields. Decrypted keys
// override plaintext ones. A blob that cannot be decrypted is dropped and the
// request continues with its other fields; it never fails the request.
func Decrypt(key []byte, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || !hasBody(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			_ = r.Body.Close()
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			if len(raw) > maxBodyBytes {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}

			var fields map[string]json.RawMessage
			if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
				next.ServeHTTP(w, withBody(r, raw))
				return
			}
			enc, ok := fields[encryptedField]
			if !ok {
				next.ServeHTTP(w, withBody(r, raw))
				return
			}
			delete(fields, encryptedField)

			var blob string
			if err := json.Unmarshal(enc, &blob); err == nil && strings.Contains(blob, ":") && len(blob) > minBlobLen {
				plain, err := decryptBlob(blob, key)
				if err != nil {
					log.Warn("payload decryption failed, continuing without it",
						zap.String("ip", ClientIP(r)),
						zap.String("path", r.URL.Path),
						zap.Int("encrypted_length", len(blob)),
						zap.Error(err))
				}
				for k, v := range plain {
					fields[k] = v
				}
			}

			body, err := json.Marshal(fields)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			next.ServeHTTP(w, withBody(r, body))
		})
	}
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// withBody returns a shallow copy of r reading from body.
func withBody(r *http.Request, body []byte) *http.Request {
	r2 := r.Clone(r.Context())
	r2.Body = io.NopCloser(bytes.NewReader(body))
	r2.ContentLength = int64(len(body))
	r2.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return r2
}

func decryptBlob(blob string, key []byte) (map[string]json.RawMessage, error) {
	ivPart, ctPart, _ := strings.Cut(blob, ":")
	strict := base64.StdEncoding.Strict()
	iv, err := strict.DecodeString(ivPart)
	if err != nil {
		return nil, err
	}
	ct, err := strict.DecodeString(ctPart)
	if err != nil {
		return nil, err
	}
	plain, err := secure.DecryptCBC(ct, iv, key)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(plain, &obj); err != nil || obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}
