package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Kind      string              `json:"kind"`
	Error     string              `json:"error"`
	RoomID    int64               `json:"room_id,omitempty"`
	BookingID int64               `json:"booking_id,omitempty"`
	CheckIn   string              `json:"check_in,omitempty"`
	CheckOut  string              `json:"check_out,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindUnavailable:  http.StatusUnprocessableEntity,
	domain.KindConflict:     http.StatusConflict,
	domain.KindInvalidState: http.StatusConflict,
}

// writeError renders a caller-facing error with its kind and context.
// Anything else is logged and reported as 500 without details.
func writeError(c *gin.Context, err error) {
	var be *domain.BookingError
	if errors.As(err, &be) {
		resp := errorResponse{
			Kind:      string(be.Kind),
			Error:     be.Error(),
			RoomID:    be.RoomID,
			BookingID: be.BookingID,
			Fields:    be.Fields,
		}
		if be.Stay != nil {
			resp.CheckIn = be.Stay.CheckIn.Format(domain.DateLayout)
			resp.CheckOut = be.Stay.CheckOut.Format(domain.DateLayout)
		}
		c.JSON(kindStatus[be.Kind], resp)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusGatewayTimeout, errorResponse{Kind: "timeout", Error: err.Error()})
		return
	}

	log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, errorResponse{Kind: "internal", Error: "internal error"})
}

// requestErrors collects malformed query, path and body values.
type requestErrors struct {
	verr *domain.BookingError
}

func (r *requestErrors) add(field, msg string) {
	if r.verr == nil {
		r.verr = domain.NewValidationError("decode request")
	}
	r.verr.AddField(field, msg)
}

// check writes a 400 and returns false if anything was collected.
func (r *requestErrors) check(c *gin.Context) bool {
	if r.verr == nil {
		return true
	}
	writeError(c, r.verr)
	return false
}

func (r *requestErrors) id(c *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		r.add(name, "must be a positive integer")
		return 0
	}
	return id
}

func (r *requestErrors) queryInt(c *gin.Context, name string) int64 {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		r.add(name, "must be a non-negative integer")
		return 0
	}
	return n
}

func (r *requestErrors) date(field, raw string) time.Time {
	if raw == "" {
		r.add(field, "is required")
		return time.Time{}
	}
	d, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		r.add(field, "must be a date in YYYY-MM-DD format")
		return time.Time{}
	}
	return d
}

func (r *requestErrors) optDate(field string, raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	d := r.date(field, *raw)
	return &d
}
