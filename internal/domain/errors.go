package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidPrompt       = errors.New("invalid prompt")
	ErrProviderFailure     = errors.New("provider failure")
	ErrUnavailable         = errors.New("service unavailable")
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrUnsupportedModel    = errors.New("unsupported model")
	ErrRegenerateExhausted = errors.New("regeneration limit reached")
)
