package domain

import "errors"

var (
	// ErrInvalidParameterValue is returned when a parameter value cannot be converted to the requested type
	ErrInvalidParameterValue = errors.New("invalid parameter value")

	// ErrUnsupportedChain is returned when a chain id is not one of the supported CAIP-2 ids
	ErrUnsupportedChain = errors.New("unsupported chain")
)
