package fir

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-fir/internal/coeff"
)

// Configuration errors. Every error returned by Validate or New matches
// ErrInvalidConfig and one of the more specific sentinels below, and can be
// unpacked with errors.As into a *ConfigError.
var (
	// ErrInvalidConfig matches every configuration error.
	ErrInvalidConfig = errors.New("invalid filter configuration")

	// ErrInconsistentRates indicates a filter type, rate-change mode and
	// L/M combination that does not fit together.
	ErrInconsistentRates = errors.New("inconsistent rate configuration")

	// ErrMalformedCoefficients indicates coefficient sets of the wrong
	// shape, values that cannot be quantized, or a broken halfband set.
	ErrMalformedCoefficients = errors.New("malformed coefficients")

	// ErrWidthOverflow indicates a width or fraction outside what the
	// datapath can carry.
	ErrWidthOverflow = errors.New("width overflow")

	// ErrInvalidChannels indicates a bad channel count, path count or
	// channel pattern.
	ErrInvalidChannels = errors.New("invalid channel configuration")

	// ErrInvalidReload indicates several coefficient sets with no way to
	// select between them.
	ErrInvalidReload = errors.New("invalid reload configuration")
)

// Reload errors. A rejected request leaves the active bank unchanged.
var (
	// ErrBankOutOfRange indicates a coefficient bank index that does not exist.
	ErrBankOutOfRange = coeff.ErrBankOutOfRange

	// ErrReloadNotSupported indicates a reload on an instance that was not
	// configured for it.
	ErrReloadNotSupported = errors.New("coefficient reload not supported")
)

// Pipeline conditions. These are recorded in Stats and Events; processing
// continues.
var (
	// ErrChannelUnderrun marks outputs computed before a channel register
	// held a full window of samples.
	ErrChannelUnderrun = errors.New("channel underrun")

	// ErrOverflow marks outputs that saturated to the output range.
	ErrOverflow = errors.New("output overflow")
)

// ErrPathMismatch is returned when the input does not have one equally
// long slice per path. No state is changed.
var ErrPathMismatch = errors.New("input does not match path count")

// ConfigError reports which configuration field failed validation.
type ConfigError struct {
	// Field is the YAML key of the offending field.
	Field string

	// Err is the cause; it wraps one of the specific sentinels.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrInvalidConfig, e.Field, e.Err)
}

// Unwrap exposes both ErrInvalidConfig and the specific cause.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.Err}
}

func configErr(field string, kind error, format string, args ...any) *ConfigError {
	return &ConfigError{
		Field: field,
		Err:   fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}
