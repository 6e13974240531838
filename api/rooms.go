package api

import (
	"net/http"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/service/hotels"
	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	hotels   hotels.HotelUseCase
	bookings booking.BookingUseCase
}

type createRoomRequest struct {
	HotelID            int64  `json:"hotel_id"`
	RoomNumber         string `json:"room_number"`
	Type               string `json:"type"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	Enabled            *bool  `json:"enabled"`
}

type updateRoomRequest struct {
	RoomNumber         *string `json:"room_number"`
	Type               *string `json:"type"`
	PricePerNightCents *int64  `json:"price_per_night_cents"`
	Enabled            *bool   `json:"enabled"`
}

type availabilityResponse struct {
	RoomID    int64  `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
	Nights    int64  `json:"nights"`
	// TotalPriceCents is the quote at the current rate.
	TotalPriceCents int64 `json:"total_price_cents"`
}

func NewRoomHandler(hotels hotels.HotelUseCase, bookings booking.BookingUseCase) *RoomHandler {
	return &RoomHandler{hotels: hotels, bookings: bookings}
}

func (h *RoomHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.GET("/:id/availability", h.availability)
}

func (h *RoomHandler) get(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")
	if !rerr.check(c) {
		return
	}

	room, err := h.hotels.GetRoom(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Kind: string(domain.KindValidation), Error: err.Error()})
		return
	}

	room, err := h.hotels.CreateRoom(c.Request.Context(), hotels.CreateRoomInput{
		HotelID:            req.HotelID,
		RoomNumber:         req.RoomNumber,
		Type:               req.Type,
		PricePerNightCents: req.PricePerNightCents,
		Enabled:            req.Enabled,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) update(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")
	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rerr.add("body", err.Error())
	}
	if !rerr.check(c) {
		return
	}

	room, err := h.hotels.UpdateRoom(c.Request.Context(), id, hotels.UpdateRoomInput{
		RoomNumber:         req.RoomNumber,
		Type:               req.Type,
		PricePerNightCents: req.PricePerNightCents,
		Enabled:            req.Enabled,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// availability answers whether the room is free for the stay. Unlike the
// checker itself, an unknown room is a 404 here.
func (h *RoomHandler) availability(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")
	checkIn := rerr.date("check_in", c.Query("check_in"))
	checkOut := rerr.date("check_out", c.Query("check_out"))
	exclude := rerr.queryInt(c, "exclude_booking_id")
	if !rerr.check(c) {
		return
	}

	ctx := c.Request.Context()
	room, err := h.hotels.GetRoom(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	available, err := h.bookings.CheckAvailability(ctx, id, checkIn, checkOut, exclude)
	if err != nil {
		writeError(c, err)
		return
	}

	stay := domain.NewStay(checkIn, checkOut)
	total, err := booking.ComputeTotal(room.PricePerNightCents, stay.CheckIn, stay.CheckOut)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{
		RoomID:          id,
		CheckIn:         stay.CheckIn.Format(domain.DateLayout),
		CheckOut:        stay.CheckOut.Format(domain.DateLayout),
		Available:       available && room.Enabled,
		Nights:          stay.Nights(),
		TotalPriceCents: total,
	})
}
