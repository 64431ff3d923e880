package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxIdempotencyKeyLength bounds client supplied Idempotency-Key values
const MaxIdempotencyKeyLength = 255

// HeaderIdempotentReplayed marks a response served from the store
const HeaderIdempotentReplayed = "Idempotent-Replayed"

// IdempotencyConfig configures the Idempotency-Key middleware
type IdempotencyConfig struct {
	Store  shared.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// storedResponse is what the store keeps for a handled key
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyRecorder copies the response body while writing it through
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes POST requests carrying an Idempotency-Key header take
// effect once. The first request claims the key and its response is
// stored; a retry with the same key and path gets the stored response
// replayed, and a retry while the first is still running gets 409.
// Server errors, conflicts and lock timeouts release the key so the
// client can retry. Requests without the header pass through.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		ctx := logger.WithIdempotencyKey(c.Request.Context(), key)
		c.Request = c.Request.WithContext(ctx)
		storeKey := "http:" + c.Request.URL.Path + ":" + key

		claimed, err := cfg.Store.MarkProcessed(ctx, storeKey, ttl)
		if err != nil {
			// Without the store the request runs unprotected rather than failing
			logger.With(ctx, log).Error("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			replay(c, cfg.Store, storeKey, log)
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if retryable(status) {
			if err := cfg.Store.Forget(ctx, storeKey); err != nil {
				logger.With(ctx, log).Warn("failed to release idempotency key", zap.Error(err))
			}
			return
		}
		raw, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err == nil {
			err = cfg.Store.SaveResponse(ctx, storeKey, raw, ttl)
		}
		if err != nil {
			logger.With(ctx, log).Warn("failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store shared.IdempotencyStore, storeKey string, log *zap.Logger) {
	ctx := c.Request.Context()
	raw, found, err := store.LoadResponse(ctx, storeKey)
	if err != nil {
		logger.With(ctx, log).Error("failed to load idempotent response", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeIdempotencyInFlight, "A request with this Idempotency-Key is still being processed", GetRequestID(c)))
		return
	}

	var resp storedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.With(ctx, log).Error("corrupt idempotent response", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
		return
	}
	logger.With(ctx, log).Info("replaying idempotent response", zap.Int("status", resp.Status))
	c.Header(HeaderIdempotentReplayed, "true")
	c.Data(resp.Status, resp.ContentType, resp.Body)
	c.Abort()
}

func retryable(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusConflict
}
