package api

import (
	"net/http"

	"github.com/Domenick1991/hotelbooking/internal/service/hotels"
	"github.com/gin-gonic/gin"
)

type HotelHandler struct {
	service hotels.HotelUseCase
}

func NewHotelHandler(service hotels.HotelUseCase) *HotelHandler {
	return &HotelHandler{service: service}
}

func (h *HotelHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
}

// RegisterGeo mounts the country and city lookups.
func (h *HotelHandler) RegisterGeo(router *gin.RouterGroup) {
	router.GET("", h.countries)
	router.GET("/:id/cities", h.cities)
}

func (h *HotelHandler) list(c *gin.Context) {
	var rerr requestErrors
	input := hotels.ListHotelsInput{Country: c.Query("country"), City: c.Query("city")}
	if raw, ok := c.GetQuery("check_in"); ok {
		d := rerr.date("check_in", raw)
		input.CheckIn = &d
	}
	if raw, ok := c.GetQuery("check_out"); ok {
		d := rerr.date("check_out", raw)
		input.CheckOut = &d
	}
	if !rerr.check(c) {
		return
	}

	list, err := h.service.ListHotels(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *HotelHandler) get(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")
	if !rerr.check(c) {
		return
	}

	hotel, err := h.service.GetHotel(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hotel)
}

func (h *HotelHandler) countries(c *gin.Context) {
	countries, err := h.service.ListCountries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, countries)
}

func (h *HotelHandler) cities(c *gin.Context) {
	var rerr requestErrors
	id := rerr.id(c, "id")
	if !rerr.check(c) {
		return
	}

	cities, err := h.service.ListCities(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cities)
}

