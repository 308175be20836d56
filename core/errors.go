package core

import (
	"errors"
	"fmt"
)

// Sentinel errors: callers use errors.Is() instead of string matching.
var (
	ErrLayerNotFound    = errors.New("layer not found")
	ErrLayerLocked      = errors.New("layer is locked")
	ErrTemplateNotFound = errors.New("template not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrLoadTimeout      = errors.New("background load timed out")
	ErrQuotaExceeded    = errors.New("storage quota exceeded")
)

// DecodeError reports a malformed or unsupported source document.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// LoadError reports an unreachable or corrupt background asset. The scene
// keeps working on a white backdrop; the error exists for notification.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load background %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EncodeError reports an export that could not produce any output. Partial
// per-layer failures are reported as a skip count instead, not as an error.
type EncodeError struct {
	Page int
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("encode page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("encode: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// QuotaError reports what a degraded save had to shed to fit the store.
type QuotaError struct {
	CapBytes  int64
	NeedBytes int64
	Shed      []string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("storage quota exceeded: need %d bytes, cap %d; shed %v",
		e.NeedBytes, e.CapBytes, e.Shed)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
