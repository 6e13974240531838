package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	args := m.Called(ctx, roomID, checkIn, checkOut, excludeBookingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.BookingView, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) UpdateBooking(ctx context.Context, id int64, input booking.UpdateBookingInput) (*domain.BookingView, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, id int64) (*domain.BookingView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) DeleteBooking(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id int64) (*domain.BookingView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) ListBookings(ctx context.Context, input booking.ListBookingsInput) ([]domain.BookingView, error) {
	args := m.Called(ctx, input)
	return args.Get(0).([]domain.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) RefreshRoomFlags(ctx context.Context, day time.Time) (int64, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(int64), args.Error(1)
}

func day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleView(status domain.BookingStatus, version int64) *domain.BookingView {
	return &domain.BookingView{
		Booking: domain.Booking{
			ID: 1, RoomID: 1, GuestName: "Ann", GuestEmail: "ann@example.com",
			CheckIn: day("2024-06-01"), CheckOut: day("2024-06-04"), TotalPriceCents: 30000,
			Status: status, Version: version,
		},
		RoomNumber: "101", RoomType: "Standard", PricePerNightCents: 10000,
		HotelID: 1, HotelName: "Grand Hotel", CityName: "New York", CountryName: "United States", CountryCode: "US",
	}
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{
		RoomID: 1, GuestName: "Ann", GuestEmail: "ann@example.com", CheckIn: "2024-06-01", CheckOut: "2024-06-04",
	})
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	input := booking.CreateBookingInput{
		RoomID: 1, GuestName: "Ann", GuestEmail: "ann@example.com", CheckIn: day("2024-06-01"), CheckOut: day("2024-06-04"),
	}
	mockService.On("CreateBooking", c.Request.Context(), input).Return(sampleView(domain.BookingStatusConfirmed, 1), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, `"1"`, w.Header().Get("ETag"))
	assert.Equal(t, "/api/v1/bookings/1", w.Header().Get("Location"))

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, int64(30000), response.TotalPriceCents)
	assert.Equal(t, int64(3), response.Nights)
	assert.Equal(t, "2024-06-01", response.CheckIn)
	assert.Equal(t, "Grand Hotel", response.HotelName)
	assert.Equal(t, string(domain.BookingStatusConfirmed), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_BadDate(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := `{"room_id":1,"guest_name":"Ann","guest_email":"ann@example.com","check_in":"06/01/2024"}`
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation_error", response.Kind)
	assert.Contains(t, response.Fields, "check_in")
	assert.Contains(t, response.Fields, "check_out")
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_create_ErrorKinds(t *testing.T) {
	stay := domain.NewStay(day("2024-06-01"), day("2024-06-04"))
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"conflict", domain.ConflictError("create booking", 1, 0, &stay, errors.New("room already booked for these dates")), http.StatusConflict, "conflict"},
		{"not found", domain.NotFoundError("create booking", 1, 0), http.StatusNotFound, "not_found"},
		{"unavailable", domain.UnavailableError("create booking", 1, &stay), http.StatusUnprocessableEntity, "unavailable"},
		{"storage", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewBookingHandler(mockService)

			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			body := `{"room_id":1,"guest_name":"Ann","guest_email":"ann@example.com","check_in":"2024-06-01","check_out":"2024-06-04"}`
			c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewBufferString(body))
			c.Request.Header.Set("Content-Type", "application/json")

			mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tt.err)

			handler.create(c)

			assert.Equal(t, tt.code, w.Code)
			var response errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.kind, response.Kind)
			if tt.kind == "conflict" {
				assert.Equal(t, int64(1), response.RoomID)
				assert.Equal(t, "2024-06-01", response.CheckIn)
				assert.Equal(t, "2024-06-04", response.CheckOut)
			}
			if tt.kind == "internal" {
				assert.NotContains(t, response.Error, "connection refused")
			}
		})
	}
}

func TestBookingHandler_update_IfMatch(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("PUT", "/api/v1/bookings/1", bytes.NewBufferString(`{"check_out":"2024-06-05"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("If-Match", `W/"2"`)

	mockService.On("UpdateBooking", c.Request.Context(), int64(1), mock.MatchedBy(func(in booking.UpdateBookingInput) bool {
		return in.ExpectedVersion == 2 && in.CheckOut != nil && in.CheckOut.Equal(day("2024-06-05")) && in.CheckIn == nil && in.GuestName == nil
	})).Return(sampleView(domain.BookingStatusConfirmed, 3), nil)

	handler.update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"3"`, w.Header().Get("ETag"))
	mockService.AssertExpectations(t)
}

func TestBookingHandler_update_InvalidState(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("PUT", "/api/v1/bookings/1", bytes.NewBufferString(`{"guest_name":"Bob"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("UpdateBooking", mock.Anything, int64(1), mock.Anything).
		Return(nil, domain.InvalidStateError("update booking", 1, domain.BookingStatusCancelled))

	handler.update(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var response errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "invalid_state", response.Kind)
	assert.Equal(t, int64(1), response.BookingID)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("DELETE", "/api/v1/bookings/1", nil)

	mockService.On("CancelBooking", c.Request.Context(), int64(1)).Return(sampleView(domain.BookingStatusCancelled, 2), nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusCancelled), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_purge(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	// 204 без тела доходит до recorder только через движок gin
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler.Register(engine.Group("/api/v1/bookings"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/api/v1/bookings/1?purge=true", nil)

	mockService.On("DeleteBooking", mock.Anything, int64(1)).Return(nil)

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	mockService.AssertExpectations(t)
	mockService.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_get_BadID(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Request = httptest.NewRequest("GET", "/api/v1/bookings/abc", nil)

	handler.get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_list(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/v1/bookings?room_id=1&guest_email=ann@example.com&status=confirmed", nil)

	mockService.On("ListBookings", c.Request.Context(), booking.ListBookingsInput{RoomID: 1, GuestEmail: "ann@example.com", Status: "confirmed"}).
		Return([]domain.BookingView{*sampleView(domain.BookingStatusConfirmed, 1)}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, int64(1), response[0].ID)
	mockService.AssertExpectations(t)
}

func TestParseETag(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"3", 3, false},
		{`"3"`, 3, false},
		{`W/"12"`, 12, false},
		{`"0"`, 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseETag(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		assert.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}
