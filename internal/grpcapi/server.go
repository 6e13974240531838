package grpcapi

import (
	"context"
	"errors"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/tracing"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server implements BookingServer on top of the booking use case.
type Server struct {
	bookings booking.BookingUseCase
}

func NewServer(bookings booking.BookingUseCase) *Server {
	return &Server{bookings: bookings}
}

func (s *Server) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{fields: req.GetFields()}
	roomID := r.intField("room_id", true)
	checkIn := r.dateField("check_in", true)
	checkOut := r.dateField("check_out", true)
	exclude := r.intField("exclude_booking_id", false)
	if err := r.err(); err != nil {
		return nil, err
	}

	available, err := s.bookings.CheckAvailability(ctx, roomID, checkIn, checkOut, exclude)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"room_id":   roomID,
		"check_in":  checkIn.Format(domain.DateLayout),
		"check_out": checkOut.Format(domain.DateLayout),
		"available": available,
	})
}

func (s *Server) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{fields: req.GetFields()}
	input := booking.CreateBookingInput{
		RoomID:     r.intField("room_id", true),
		GuestName:  r.stringField("guest_name"),
		GuestEmail: r.stringField("guest_email"),
		CheckIn:    r.dateField("check_in", true),
		CheckOut:   r.dateField("check_out", true),
	}
	if err := r.err(); err != nil {
		return nil, err
	}

	created, err := s.bookings.CreateBooking(ctx, input)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPBBooking(created)
}

func (s *Server) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{fields: req.GetFields()}
	id := r.intField("id", true)
	if err := r.err(); err != nil {
		return nil, err
	}

	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPBBooking(b)
}

func (s *Server) UpdateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{fields: req.GetFields()}
	id := r.intField("id", true)
	input := booking.UpdateBookingInput{
		GuestName:       r.optString("guest_name"),
		GuestEmail:      r.optString("guest_email"),
		Status:          r.optString("status"),
		ExpectedVersion: r.intField("version", false),
	}
	if _, ok := r.fields["check_in"]; ok {
		d := r.dateField("check_in", true)
		input.CheckIn = &d
	}
	if _, ok := r.fields["check_out"]; ok {
		d := r.dateField("check_out", true)
		input.CheckOut = &d
	}
	if err := r.err(); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateBooking(ctx, id, input)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPBBooking(updated)
}

func (s *Server) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := reader{fields: req.GetFields()}
	id := r.intField("id", true)
	if err := r.err(); err != nil {
		return nil, err
	}

	cancelled, err := s.bookings.CancelBooking(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPBBooking(cancelled)
}

func toPBBooking(v *domain.BookingView) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"id":                    v.ID,
		"room_id":               v.RoomID,
		"room_number":           v.RoomNumber,
		"room_type":             v.RoomType,
		"hotel_id":              v.HotelID,
		"hotel_name":            v.HotelName,
		"city":                  v.CityName,
		"country":               v.CountryName,
		"guest_name":            v.GuestName,
		"guest_email":           v.GuestEmail,
		"check_in":              v.CheckIn.Format(domain.DateLayout),
		"check_out":             v.CheckOut.Format(domain.DateLayout),
		"nights":                v.Stay().Nights(),
		"total_price_cents":     v.TotalPriceCents,
		"price_per_night_cents": v.PricePerNightCents,
		"status":                string(v.Status),
		"version":               v.Version,
	})
}

// toStatus maps error kinds to gRPC codes. Storage faults are logged and
// reported as Internal without details.
func toStatus(err error) error {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindUnavailable, domain.KindInvalidState:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.KindConflict:
		return status.Error(codes.Aborted, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	log.Printf("ERROR: grpc: %v", err)
	return status.Error(codes.Internal, "internal error")
}

// UnaryLogging logs every call with its code, latency and trace id.
func UnaryLogging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, span := tracing.Start(ctx, info.FullMethod)
		start := time.Now()
		resp, err := handler(ctx, req)
		tracing.End(span, err)
		log.Printf("grpc %s %s %s trace_id=%s", info.FullMethod, status.Code(err), time.Since(start), tracing.TraceID(ctx))
		return resp, err
	}
}

// reader pulls typed fields out of a Struct and collects what is wrong.
type reader struct {
	fields map[string]*structpb.Value
	verr   *domain.BookingError
}

func (r *reader) fail(field, msg string) {
	if r.verr == nil {
		r.verr = domain.NewValidationError("decode request")
	}
	r.verr.AddField(field, msg)
}

func (r *reader) err() error {
	if r.verr == nil {
		return nil
	}
	return status.Error(codes.InvalidArgument, r.verr.Error())
}

func (r *reader) intField(name string, required bool) int64 {
	v, ok := r.fields[name]
	if !ok {
		if required {
			r.fail(name, "is required")
		}
		return 0
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			r.fail(name, "must be an integer")
			return 0
		}
		return int64(n)
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			r.fail(name, "must be an integer")
			return 0
		}
		return n
	}
	r.fail(name, "must be an integer")
	return 0
}

func (r *reader) stringField(name string) string {
	if s := r.optString(name); s != nil {
		return *s
	}
	return ""
}

func (r *reader) optString(name string) *string {
	v, ok := r.fields[name]
	if !ok {
		return nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		r.fail(name, "must be a string")
		return nil
	}
	return &s.StringValue
}

func (r *reader) dateField(name string, required bool) time.Time {
	s := r.optString(name)
	if s == nil {
		if required {
			if _, present := r.fields[name]; !present {
				r.fail(name, "is required")
			}
		}
		return time.Time{}
	}
	d, err := time.Parse(domain.DateLayout, *s)
	if err != nil {
		r.fail(name, "must be a date in YYYY-MM-DD format")
		return time.Time{}
	}
	return d
}

var _ BookingServer = (*Server)(nil)
