package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxRequestIDLength bounds caller-supplied request IDs.
	MaxRequestIDLength = 128
	// MaxChannelLength bounds the channel header copied onto spans.
	MaxChannelLength = 64
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "backoffice",
		Enabled:     true,
	}
}

// TracingWithConfig returns the otelgin middleware that opens one server span per request.
// Spans are named after the matched route, e.g. "GET /api/v1/orders/:number".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector copies request_id, channel and order_number onto the
// current span. It must run after TracingWithConfig and RequestID.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if channel := c.GetHeader(ChannelHeader); channel != "" && len(channel) <= MaxChannelLength {
		span.SetAttributes(attribute.String("channel", channel))
	}
	if number := c.Param("number"); number != "" {
		span.SetAttributes(attribute.String("order_number", number))
	}
}

// getRequestID retrieves the request ID set by RequestID, falling back to the header.
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	headerID := c.GetHeader(RequestIDHeader)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// SpanErrorMarker marks 4xx responses as span errors and tags every error
// response with error.type. otelgin leaves client errors Unset on server spans
// and sets the 5xx status itself after the chain returns, overwriting any
// description set here, so 5xx only get the attribute.
// Place it after TracingWithConfig.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.String("error.type", strconv.Itoa(status)))
		if status >= http.StatusInternalServerError {
			return
		}
		span.SetStatus(codes.Error, clientErrorMessage(status))
	}
}

func clientErrorMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusUnprocessableEntity:
		return "Unprocessable Entity"
	case http.StatusTooManyRequests:
		return "Too Many Requests"
	}
	return "Client Error"
}
