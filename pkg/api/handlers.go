package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"modbusgw/pkg/bridge"
	"modbusgw/pkg/database"
	"modbusgw/pkg/health"
	"modbusgw/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	headerFallback  = "X-Result-Fallback"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Invoker runs one gateway invocation on behalf of an HTTP request.
type Invoker interface {
	Invoke(ctx context.Context, requestID string, payload string) (*bridge.Result, error)
}

// HistoryReader serves stored invocations.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]*models.Invocation, error)
	ByRequestID(ctx context.Context, requestID string) (*models.Invocation, error)
}

// HealthChecker reports gateway health for /healthz.
type HealthChecker interface {
	Status() health.Status
}

// invokeHandler passes the raw request body to the gateway and renders its record
func invokeHandler(invoker Invoker, validate bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read request body")
			return
		}
		payload := string(body)

		if validate {
			if _, err := models.ValidatePayload(payload); err != nil {
				respondError(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		result, err := invoker.Invoke(c.Request.Context(), requestID, payload)
		if err != nil {
			var invErr *bridge.InvocationError
			switch {
			case errors.As(err, &invErr):
				respondFailure(c, http.StatusBadGateway, string(invErr.Kind), invErr.Message)
			case errors.Is(err, context.DeadlineExceeded):
				slog.Warn("Invocation deadline passed while queued", "component", "API", "request_id", requestID)
				respondError(c, http.StatusGatewayTimeout, err.Error())
			default:
				// Pool stopped or caller gone
				respondError(c, http.StatusServiceUnavailable, err.Error())
			}
			return
		}

		c.Header(headerFallback, strconv.FormatBool(result.Fallback))
		c.PureJSON(http.StatusOK, result.Record)
	}
}

// listInvocationsHandler returns the most recent invocations
func listInvocationsHandler(history HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				respondError(c, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(parsed, maxHistoryLimit)
		}

		entries, err := history.Recent(c.Request.Context(), limit)
		if err != nil {
			respondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

// getInvocationHandler returns a single invocation by request id
func getInvocationHandler(history HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := history.ByRequestID(c.Request.Context(), c.Param("request_id"))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(c, http.StatusNotFound, "record not found")
				return
			}
			respondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// healthHandler answers 503 while the gateway is over its failure threshold
func healthHandler(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		status := checker.Status()
		if !status.Healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "gateway": status})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "gateway": status})
	}
}
