package errors

import "errors"

var ErrUnauthorized = errors.New("user is not authorized")
var ErrEventNotFound = errors.New("event not found")
var ErrBookingNotFound = errors.New("booking not found")
