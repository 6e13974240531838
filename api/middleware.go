package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/tracing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

const requestIDHeader = "X-Request-ID"

// AccessLog opens a span per request, continuing an incoming W3C trace,
// and logs one access line when the handler returns.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracing.Start(ctx, c.Request.Method+" "+c.FullPath(),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		log.Printf(
			"type: access, method: %s, url: %s, status: %d, requestID: %s, traceID: %s, latency: %s",
			c.Request.Method,
			c.Request.URL.Path,
			status,
			requestID,
			tracing.TraceID(ctx),
			time.Since(start),
		)
	}
}

// Recover turns a handler panic into a 500.
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if re := recover(); re != nil {
				log.Printf("type: panic, error: %v", fmt.Sprint(re))
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Kind: "internal", Error: "internal error"})
			}
		}()
		c.Next()
	}
}
