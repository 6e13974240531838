package api

import (
	"net/http"

	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/service/hotels"
	"github.com/gin-gonic/gin"
)

// NewRouter mounts every handler under /api/v1 plus /healthz.
func NewRouter(bookingSvc booking.BookingUseCase, hotelSvc hotels.HotelUseCase) *gin.Engine {
	router := gin.New()
	router.Use(Recover(), AccessLog())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	NewBookingHandler(bookingSvc).Register(v1.Group("/bookings"))
	NewRoomHandler(hotelSvc, bookingSvc).Register(v1.Group("/rooms"))
	hotelHandler := NewHotelHandler(hotelSvc)
	hotelHandler.Register(v1.Group("/hotels"))
	hotelHandler.RegisterGeo(v1.Group("/countries"))

	return router
}
