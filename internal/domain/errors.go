package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidInput  = errors.New("height, weight and units must be provided and positive")
	ErrInvalidResult = errors.New("calculation produced an invalid result")

	ErrStoreUnavailable = errors.New("entry store unavailable")
	ErrStoreRejected    = errors.New("entry store rejected the write")

	ErrNotFound = errors.New("entry not found")
)

// FieldErrors maps form field names to validation messages. Validation
// failures never leave the form layer as opaque errors.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}
