package responses

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xchain/exchange/pkg/errors"
)

// StandardResponse is the success-path envelope for all non-error responses.
type StandardResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Success sends a 200 OK envelope.
func Success(c *gin.Context, data interface{}, message ...string) {
	msg := "ok"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	c.JSON(http.StatusOK, StandardResponse{
		Success:   true,
		Data:      data,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		TraceID:   getTraceID(c),
	})
}

// Error sends an RFC 7807 problem+json response.
func Error(c *gin.Context, problem *errors.ProblemDetails) {
	if problem.TraceID == "" {
		if traceID := getTraceID(c); traceID != "" {
			problem.WithTraceID(traceID)
		}
	}
	c.Header("Content-Type", "application/problem+json")
	c.JSON(problem.Status, problem)
}

// BadRequest sends a 400 Validation problem.
func BadRequest(c *gin.Context, detail string, validationErrors ...errors.ValidationError) {
	p := errors.NewValidationError(detail, c.Request.URL.Path)
	if len(validationErrors) > 0 {
		p.WithValidationErrors(validationErrors)
	}
	Error(c, p)
}

// NotFound sends a 404 NotFound problem.
func NotFound(c *gin.Context, detail string) {
	Error(c, errors.NewNotFoundError(detail, c.Request.URL.Path))
}

// InsufficientEscrow sends a 402 InsufficientEscrow problem.
func InsufficientEscrow(c *gin.Context, detail string) {
	Error(c, errors.NewInsufficientEscrowError(detail, c.Request.URL.Path))
}

// TooManyRequests sends a 429 rate-limit problem.
func TooManyRequests(c *gin.Context, detail string) {
	Error(c, errors.NewRateLimitError(detail, c.Request.URL.Path))
}

// InternalServerError sends a 500 problem.
func InternalServerError(c *gin.Context, detail string) {
	Error(c, errors.NewInternalError(detail, c.Request.URL.Path))
}

// BadGateway sends a 502 problem, used for upstream proxy failures
// (price/kline) and transient chain RPC failures surfaced synchronously.
func BadGateway(c *gin.Context, detail string) {
	Error(c, errors.NewBadGatewayError(detail, c.Request.URL.Path))
}

func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return c.GetHeader("X-Trace-ID")
}
