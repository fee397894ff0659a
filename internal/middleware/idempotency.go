package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

const (
	// IdempotencyHeader carries the client-chosen key.
	IdempotencyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the stored result.
	IdempotentReplayHeader = "Idempotent-Replay"

	maxIdempotencyKeyLength = 128
)

type idempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*models.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, key string, record models.IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key. Keys are
// scoped to the caller and route. Requests without the header pass through. A
// failed or panicking request releases the key so the client may retry.
func Idempotency(store idempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if raw == "" || store == nil {
			c.Next()
			return
		}
		if len(raw) > maxIdempotencyKeyLength {
			response.Error(c, appErrors.Validation("invalid idempotency key", appErrors.FieldError{Field: IdempotencyHeader, Message: "must be at most 128 characters"}))
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unable to read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := scopedKey(c, raw)
		fingerprint := fingerprintOf(c.Request.Method, c.Request.URL.Path, body)
		ctx := c.Request.Context()

		existing, reserved, err := store.Reserve(ctx, key, fingerprint, ttl)
		if err != nil {
			log.Warn("idempotency reserve failed, continuing without replay protection", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replay(c, existing, fingerprint)
			return
		}

		background := context.WithoutCancel(ctx)
		release := func() {
			if err := store.Release(background, key); err != nil {
				log.Warn("idempotency release failed", zap.Error(err))
			}
		}
		// A panicking handler leaves no response to store; free the key and let recovery answer.
		defer func() {
			if r := recover(); r != nil {
				release()
				panic(r)
			}
		}()

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusBadRequest {
			release()
			return
		}
		record := models.IdempotencyRecord{
			Fingerprint: fingerprint,
			StatusCode:  status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if err := store.Complete(background, key, record, ttl); err != nil {
			log.Warn("idempotency complete failed", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, existing *models.IdempotencyRecord, fingerprint string) {
	switch {
	case existing == nil:
		response.Error(c, appErrors.ErrIdempotencyInFlight)
	case existing.State != models.IdempotencyCompleted:
		response.Error(c, appErrors.ErrIdempotencyInFlight)
	case existing.Fingerprint != fingerprint:
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "idempotency key was used with a different request"))
	default:
		contentType := existing.ContentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		c.Header(IdempotentReplayHeader, "true")
		c.Data(existing.StatusCode, contentType, existing.Body)
	}
	c.Abort()
}

func scopedKey(c *gin.Context, raw string) string {
	owner := "anonymous"
	if claims := Claims(c); claims != nil {
		owner = claims.OfficialID()
	}
	return owner + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + raw
}

func fingerprintOf(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{0})
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
