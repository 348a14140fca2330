package domain

import "errors"

var (
	ErrUnsupportedPair = errors.New("unsupported pair")
)
