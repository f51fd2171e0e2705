package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/batgear/batstore-backend/internal/errors"
	"github.com/gin-gonic/gin"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyStore persists one record per scoped key.
// *redis.IdempotencyStore satisfies it.
type IdempotencyStore interface {
	Key(scope, key string) string
	Get(ctx context.Context, key string) (string, bool, error)
	SetNX(ctx context.Context, key, payload string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, payload string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type idempotencyRecord struct {
	Pending     bool              `json:"pending,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a request is repeated with the
// same Idempotency-Key and body. Requests without the header pass through.
// 5xx responses are not kept so the client can retry them.
func Idempotency(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if store == nil || idempotencyKey == "" {
			c.Next()
			return
		}
		log := GetLoggerFromContext(c)
		ctx := c.Request.Context()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			errors.BadRequest(c, errors.ValidationInvalidFormat, "Could not read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashBody(body)
		key := store.Key(buildScope(c), idempotencyKey)

		reservation, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
		reserved, err := store.SetNX(ctx, key, string(reservation), ttl)
		if err != nil {
			log.Error("Failed to reserve idempotency key", err)
			errors.InternalError(c, "")
			return
		}

		if !reserved {
			stored, found, getErr := store.Get(ctx, key)
			if getErr != nil {
				log.Error("Failed to read idempotency record", getErr)
				errors.InternalError(c, "")
				return
			}
			if !found {
				// expired between SetNX and Get
				errors.Conflict(c, errors.OrderIdempotencyInProgress, "Request is being processed, retry shortly")
				return
			}
			record, decodeErr := decodeRecord(stored)
			if decodeErr != nil {
				log.Error("Failed to decode idempotency record", decodeErr)
				errors.InternalError(c, "")
				return
			}
			if record.RequestHash != requestHash {
				log.Warn("Idempotency key reused with a different body", map[string]interface{}{
					"idempotency_key": idempotencyKey,
				})
				errors.Conflict(c, errors.OrderIdempotencyConflict, "Idempotency-Key was already used with a different request")
				return
			}
			if record.Pending {
				errors.Conflict(c, errors.OrderIdempotencyInProgress, "Request is being processed, retry shortly")
				return
			}
			log.Info("Replaying idempotent response", map[string]interface{}{
				"idempotency_key": idempotencyKey,
				"status":          record.Status,
			})
			writeStoredResponse(c, record)
			return
		}

		capture := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		status := capture.Status()
		if status >= http.StatusInternalServerError {
			if delErr := store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				log.Error("Failed to release idempotency key", delErr)
			}
			return
		}

		record := idempotencyRecord{
			Status:      status,
			Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
			RequestHash: requestHash,
		}
		if ct := capture.Header().Get("Content-Type"); ct != "" {
			record.Headers = map[string]string{"Content-Type": ct}
		}
		payload, err := json.Marshal(record)
		if err != nil {
			log.Error("Failed to marshal idempotency record", err)
			return
		}
		if err := store.Set(context.WithoutCancel(ctx), key, string(payload), ttl); err != nil {
			log.Error("Failed to persist idempotency record", err)
		}
	}
}

func buildScope(c *gin.Context) string {
	userID, _ := GetUserID(c)
	return strings.Join([]string{
		fmt.Sprintf("%d", userID),
		c.Request.Method,
		c.Request.URL.Path,
	}, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(c *gin.Context, record *idempotencyRecord) {
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		c.Header("Content-Type", ct)
	}
	c.Header("Idempotent-Replayed", "true")
	c.Status(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = c.Writer.Write(decoded)
	}
	c.Abort()
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// MemoryIdempotencyStore keeps records in process memory. It backs the
// middleware when Redis is disabled.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	payload   string
	expiresAt time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: make(map[string]memoryRecord), now: time.Now}
}

func (s *MemoryIdempotencyStore) Key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(key)
	return rec.payload, ok, nil
}

func (s *MemoryIdempotencyStore) SetNX(_ context.Context, key, payload string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.records[key] = memoryRecord{payload: payload, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, key, payload string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = memoryRecord{payload: payload, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// lookup must be called with mu held
func (s *MemoryIdempotencyStore) lookup(key string) (memoryRecord, bool) {
	rec, ok := s.records[key]
	if !ok {
		return memoryRecord{}, false
	}
	if !rec.expiresAt.After(s.now()) {
		delete(s.records, key)
		return memoryRecord{}, false
	}
	return rec, true
}
