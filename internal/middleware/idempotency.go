package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"nexo/pkg/idempotency"
	"nexo/pkg/keylock"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of an earlier request that carried
// the same Idempotency-Key. Keys are scoped to principal, method and route.
// Reusing a key with a different body is rejected with 422. Requests without
// the header pass through.
func Idempotency(store *idempotency.Store, log *logrus.Logger) gin.HandlerFunc {
	locks := keylock.New[string]()
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > 255 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "idempotency key too long"})
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		scoped := fmt.Sprintf("%s:%d|%s %s|%s", GetRole(c), GetPrincipalID(c), c.Request.Method, c.Request.URL.Path, key)
		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])

		unlock := locks.Lock(scoped)
		defer unlock()

		rec, err := store.Get(scoped)
		switch {
		case err == nil:
			if rec.Fingerprint != fingerprint {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency key reused with a different request"})
				return
			}
			c.Header(HeaderReplayed, "true")
			c.Data(rec.StatusCode, rec.ContentType, rec.Body)
			c.Abort()
			return
		case !errors.Is(err, idempotency.ErrNotFound):
			log.WithError(err).Error("idempotency lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// server errors are not cached so that the client can retry
		if w.Status() >= http.StatusInternalServerError {
			return
		}
		if _, _, err := store.Save(&idempotency.Record{
			Key:         scoped,
			Fingerprint: fingerprint,
			StatusCode:  w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}); err != nil {
			log.WithError(err).Error("failed to store idempotent response")
		}
	}
}
