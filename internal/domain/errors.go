package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation_error"
	KindNotFound     ErrorKind = "not_found"
	KindUnavailable  ErrorKind = "unavailable"
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
)

// Sentinels for errors.Is. A *BookingError matches the sentinel of its kind.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("room unavailable")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:   ErrValidation,
	KindNotFound:     ErrNotFound,
	KindUnavailable:  ErrUnavailable,
	KindConflict:     ErrConflict,
	KindInvalidState: ErrInvalidState,
}

// BookingError is a caller-facing rejection. Storage faults are never
// wrapped into it.
type BookingError struct {
	Kind      ErrorKind
	Op        string
	RoomID    int64
	BookingID int64
	Stay      *Stay
	Fields    map[string][]string
	Err       error
}

func (e *BookingError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.message())
	if e.BookingID != 0 {
		fmt.Fprintf(&b, " (booking %d)", e.BookingID)
	}
	if e.RoomID != 0 {
		fmt.Fprintf(&b, " (room %d)", e.RoomID)
	}
	if e.Stay != nil {
		fmt.Fprintf(&b, " %s", e.Stay)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
		}
		b.WriteString(" [" + strings.Join(parts, ", ") + "]")
	}
	return b.String()
}

func (e *BookingError) message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if s, ok := kindSentinels[e.Kind]; ok {
		return s.Error()
	}
	return string(e.Kind)
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

func (e *BookingError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// AddField records a field-level validation message.
func (e *BookingError) AddField(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *BookingError) HasFields() bool {
	return len(e.Fields) > 0
}

// KindOf returns the kind of a BookingError anywhere in err's chain, or ""
// for anything else (storage faults included).
func KindOf(err error) ErrorKind {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

func NewValidationError(op string) *BookingError {
	return &BookingError{Kind: KindValidation, Op: op}
}

func NotFoundError(op string, roomID, bookingID int64) *BookingError {
	what := "booking not found"
	if bookingID == 0 {
		what = "room not found"
	}
	return &BookingError{Kind: KindNotFound, Op: op, RoomID: roomID, BookingID: bookingID, Err: errors.New(what)}
}

func ConflictError(op string, roomID, bookingID int64, stay *Stay, cause error) *BookingError {
	return &BookingError{Kind: KindConflict, Op: op, RoomID: roomID, BookingID: bookingID, Stay: stay, Err: cause}
}

func UnavailableError(op string, roomID int64, stay *Stay) *BookingError {
	return &BookingError{Kind: KindUnavailable, Op: op, RoomID: roomID, Stay: stay, Err: errors.New("room is disabled")}
}

func InvalidStateError(op string, bookingID int64, status BookingStatus) *BookingError {
	return &BookingError{Kind: KindInvalidState, Op: op, BookingID: bookingID, Err: fmt.Errorf("booking is %s", strings.ToLower(string(status)))}
}
