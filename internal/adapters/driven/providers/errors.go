package providers

import "errors"

var (
	ErrMissingClientID     = errors.New("oauth: missing client ID")
	ErrMissingClientSecret = errors.New("oauth: missing client secret")
	ErrMissingRedirectURI  = errors.New("oauth: missing redirect URI")
	ErrRequestFailed       = errors.New("oauth: request returned non-OK status")
	ErrDecodeFailed        = errors.New("oauth: failed to decode response")
)
