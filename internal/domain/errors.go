package domain

import "errors"

var (
	ErrInvalidImageEncoding = errors.New("invalid image encoding")
	ErrBackendRefused       = errors.New("backend refused")
	ErrTransport            = errors.New("transport failure")
	ErrWatermarkSurface     = errors.New("watermark surface unavailable")
	ErrWatermarkSource      = errors.New("watermark source load failed")

	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrSlotPending       = errors.New("slot is pending")
	ErrSlotIndex         = errors.New("slot index out of range")
)
