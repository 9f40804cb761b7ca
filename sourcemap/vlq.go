// Package sourcemap reads and writes version 3 source maps.
package sourcemap

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors
var (
	ErrInvalidBase64   = errors.New("invalid base64 VLQ digit")
	ErrUnterminatedVLQ = errors.New("unterminated VLQ value")
	ErrVLQOverflow     = errors.New("VLQ value out of 32-bit range")
	ErrInvalidMappings = errors.New("invalid mappings")
	ErrInvalidVersion  = errors.New("unsupported source map version")
)

const (
	base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	vlqShift     = 5
	vlqBase      = 1 << vlqShift
	vlqMask      = vlqBase - 1
	vlqContinue  = vlqBase
)

var base64Values = func() [128]int8 {
	var table [128]int8
	for i := range table {
		table[i] = -1
	}

	for i, c := range base64Digits {
		table[c] = int8(i)
	}

	return table
}()

// Encode writes values as one base64 VLQ group.
func Encode(values ...int) string {
	var b strings.Builder

	for _, v := range values {
		encodeValue(&b, int64(v))
	}

	return b.String()
}

func encodeValue(b *strings.Builder, v int64) {
	var u uint64
	if v < 0 {
		u = uint64(-v)<<1 | 1
	} else {
		u = uint64(v) << 1
	}

	for {
		digit := u & vlqMask
		u >>= vlqShift

		if u > 0 {
			digit |= vlqContinue
		}

		b.WriteByte(base64Digits[digit])

		if u == 0 {
			return
		}
	}
}

// Decode reads every value of a base64 VLQ group. Decoding is the inverse of Encode for
// every 32-bit signed value.
func Decode(s string) ([]int, error) {
	var values []int

	for i := 0; i < len(s); {
		v, n, err := decodeValue(s[i:])
		if err != nil {
			return nil, fmt.Errorf("%w at offset %d", err, i)
		}

		values = append(values, v)
		i += n
	}

	return values, nil
}

// decodeValue reads one value from the front of s and reports how many bytes it used.
func decodeValue(s string) (int, int, error) {
	var (
		u     uint64
		shift uint
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 128 || base64Values[c] < 0 {
			return 0, 0, fmt.Errorf("%w %q", ErrInvalidBase64, c)
		}

		digit := uint64(base64Values[c])
		u |= (digit & vlqMask) << shift
		shift += vlqShift

		if digit&vlqContinue == 0 {
			magnitude := int64(u >> 1)
			if u&1 == 1 {
				magnitude = -magnitude
			}

			if magnitude > math.MaxInt32 || magnitude < math.MinInt32 {
				return 0, 0, ErrVLQOverflow
			}

			return int(magnitude), i + 1, nil
		}

		if shift > 32 {
			return 0, 0, ErrVLQOverflow
		}
	}

	return 0, 0, ErrUnterminatedVLQ
}
