package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// ParameterLastBlockChecked is the name of the watermark parameter
	ParameterLastBlockChecked = "lastBlockChecked"
)
