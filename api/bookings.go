package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	RoomID     int64  `json:"room_id"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
}

// updateBookingRequest is a partial update: absent fields stay as they are.
type updateBookingRequest struct {
	GuestName  *string `json:"guest_name"`
	GuestEmail *string `json:"guest_email"`
	CheckIn    *string `json:"check_in"`
	CheckOut   *string `json:"check_out"`
	Status     *string `json:"status"`
	Version    int64   `json:"version"`
}

type bookingResponse struct {
	ID                 int64     `json:"id"`
	RoomID             int64     `json:"room_id"`
	RoomNumber         string    `json:"room_number"`
	RoomType           string    `json:"room_type"`
	HotelID            int64     `json:"hotel_id"`
	HotelName          string    `json:"hotel_name"`
	HotelAddress       string    `json:"hotel_address"`
	City               string    `json:"city"`
	Country            string    `json:"country"`
	CountryCode        string    `json:"country_code"`
	GuestName          string    `json:"guest_name"`
	GuestEmail         string    `json:"guest_email"`
	CheckIn            string    `json:"check_in"`
	CheckOut           string    `json:"check_out"`
	Nights             int64     `json:"nights"`
	PricePerNightCents int64     `json:"price_per_night_cents"`
	TotalPriceCents    int64     `json:"total_price_cents"`
	Status             string    `json:"status"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Kind: string(domain.KindValidation), Error: err.Error()})
		return
	}

	var rerr requestErrors
	checkIn := rerr.date("check_in", req.CheckIn)
	checkOut := rerr.date("check_out", req.CheckOut)
	if !rerr.check(c) {
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		RoomID:     req.RoomID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Location", "/api/v1/bookings/"+strconv.FormatInt(created.ID, 10))
	writeBooking(c, http.StatusCreated, created)
}

func (h *BookingHandler) list(c *gin.Context) {
	var rerr requestErrors
	roomID := rerr.queryInt(c, "room_id")
	if !rerr.check(c) {
		return
	}

	views, err := h.service.ListBookings(c.Request.Context(), booking.ListBookingsInput{
		RoomID:     roomID,
		GuestEmail: c.Query("guest_email"),
		Status:     c.Query("status"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]bookingResponse, 0, len(views))
	for i := range views {
		resp = append(resp, toBookingResponse(&views[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) get(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")
	if !rerr.check(c) {
		return
	}

	view, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeBooking(c, http.StatusOK, view)
}

func (h *BookingHandler) update(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")

	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rerr.add("body", err.Error())
	}
	input := booking.UpdateBookingInput{
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		CheckIn:         rerr.optDate("check_in", req.CheckIn),
		CheckOut:        rerr.optDate("check_out", req.CheckOut),
		Status:          req.Status,
		ExpectedVersion: req.Version,
	}
	if ifMatch := c.GetHeader("If-Match"); ifMatch != "" {
		version, err := parseETag(ifMatch)
		if err != nil {
			rerr.add("If-Match", "must be a booking version")
		}
		input.ExpectedVersion = version
	}
	if !rerr.check(c) {
		return
	}

	updated, err := h.service.UpdateBooking(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, err)
		return
	}
	writeBooking(c, http.StatusOK, updated)
}

// cancel flips the booking to CANCELLED; with ?purge=true the row is
// deleted instead.
func (h *BookingHandler) cancel(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")
	purge := false
	if raw := c.Query("purge"); raw != "" {
		var err error
		if purge, err = strconv.ParseBool(raw); err != nil {
			rerr.add("purge", "must be a boolean")
		}
	}
	if !rerr.check(c) {
		return
	}

	if purge {
		if err := h.service.DeleteBooking(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeBooking(c, http.StatusOK, cancelled)
}

func writeBooking(c *gin.Context, code int, v *domain.BookingView) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(v.Version, 10)))
	c.JSON(code, toBookingResponse(v))
}

func toBookingResponse(v *domain.BookingView) bookingResponse {
	return bookingResponse{
		ID:                 v.ID,
		RoomID:             v.RoomID,
		RoomNumber:         v.RoomNumber,
		RoomType:           v.RoomType,
		HotelID:            v.HotelID,
		HotelName:          v.HotelName,
		HotelAddress:       v.HotelAddress,
		City:               v.CityName,
		Country:            v.CountryName,
		CountryCode:        v.CountryCode,
		GuestName:          v.GuestName,
		GuestEmail:         v.GuestEmail,
		CheckIn:            v.CheckIn.Format(domain.DateLayout),
		CheckOut:           v.CheckOut.Format(domain.DateLayout),
		Nights:             v.Stay().Nights(),
		PricePerNightCents: v.PricePerNightCents,
		TotalPriceCents:    v.TotalPriceCents,
		Status:             string(v.Status),
		Version:            v.Version,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}

// parseETag accepts 3, "3" and W/"3".
func parseETag(raw string) (int64, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "W/")
	raw = strings.Trim(raw, `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && v <= 0 {
		err = strconv.ErrRange
	}
	return v, err
}
