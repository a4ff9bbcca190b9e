// Package header reads the parameter block of an FIR compiler C-model
// configuration header.
//
// The header lists every parameter as a "// key: value" comment line,
// coefficients included, ahead of the C declarations. When the comment
// carries no coefficient list, the first "const double ..._coefficients[N]"
// initializer is used instead.
package header

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	coefficientsKey = "coefficients"

	// coefficient lines of large filters run to several hundred kilobytes
	maxLineBytes = 16 << 20
	initLineSize = 64 << 10
)

var (
	// ErrMissingKey is returned when a required parameter is absent.
	ErrMissingKey = errors.New("header parameter missing")

	// ErrSyntax is returned for values that do not parse.
	ErrSyntax = errors.New("header syntax error")
)

// Header is the parsed parameter block.
type Header struct {
	// Params maps every parameter key to its raw value, coefficients
	// excluded.
	Params map[string]string

	// Keys lists parameter keys in file order.
	Keys []string

	// Coefficients is the flat coefficient list of every set.
	Coefficients []float64
}

// Parse reads a header from r.
func Parse(r io.Reader) (*Header, error) {
	h := &Header{Params: make(map[string]string)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initLineSize), maxLineBytes)

	var arrayCoeffs []float64
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if rest, ok := strings.CutPrefix(line, "//"); ok {
			key, value, found := strings.Cut(rest, ":")
			if !found {
				continue
			}
			key = strings.TrimSpace(key)
			if !isKey(key) {
				continue
			}
			value = strings.TrimSpace(value)
			if key == coefficientsKey {
				coeffs, err := parseFloats(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				h.Coefficients = coeffs
				continue
			}
			if _, dup := h.Params[key]; !dup {
				h.Keys = append(h.Keys, key)
			}
			h.Params[key] = value
			continue
		}

		if arrayCoeffs == nil && strings.HasPrefix(line, "const double") && strings.Contains(line, "_coefficients[") {
			body, err := initializer(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if arrayCoeffs, err = parseFloats(body); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if h.Coefficients == nil {
		h.Coefficients = arrayCoeffs
	}
	if len(h.Keys) == 0 {
		return nil, fmt.Errorf("%w: no parameter block found", ErrSyntax)
	}
	return h, nil
}

// isKey accepts the lower_snake_case identifiers used for parameters and
// rejects prose comments that happen to contain a colon.
func isKey(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

func initializer(line string) (string, error) {
	start := strings.IndexByte(line, '{')
	end := strings.LastIndexByte(line, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: coefficient array without initializer", ErrSyntax)
	}
	return line[start+1 : end], nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: coefficient %q", ErrSyntax, f)
		}
		out = append(out, v)
	}
	return out, nil
}

// Has reports whether key is present.
func (h *Header) Has(key string) bool {
	_, ok := h.Params[key]
	return ok
}

// Int returns the integer value of key.
func (h *Header) Int(key string) (int, error) {
	v, ok := h.Params[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrSyntax, key, v)
	}
	return n, nil
}

// IntOr returns the integer value of key, or def when key is absent.
func (h *Header) IntOr(key string, def int) (int, error) {
	if !h.Has(key) {
		return def, nil
	}
	return h.Int(key)
}

// Bool returns a 0/1 flag.
func (h *Header) Bool(key string) (bool, error) {
	n, err := h.Int(key)
	if err != nil {
		return false, err
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: %s=%d is not a 0/1 flag", ErrSyntax, key, n)
}

// Ints parses a comma separated integer list, such as a channel pattern.
func (h *Header) Ints(key string) ([]int, error) {
	v, ok := h.Params[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	var out []int
	for f := range strings.SplitSeq(v, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s entry %q", ErrSyntax, key, f)
		}
		out = append(out, n)
	}
	return out, nil
}

// String returns the raw value of key, or "" when absent.
func (h *Header) String(key string) string {
	return h.Params[key]
}
