package logic

import "errors"

var (
	ErrInvalidMetadata    = errors.New("invalid metadata")
	ErrModelFailure       = errors.New("image model failed")
	ErrStoreFailure       = errors.New("store failed")
	ErrRejected           = errors.New("generation queue is full")
	ErrNoRememberedImage  = errors.New("no remembered image for user")
	ErrForeignGeneration  = errors.New("generation belongs to another user")
	ErrSessionUnavailable = errors.New("feedback session unavailable")
)
