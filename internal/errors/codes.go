package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Claim errors
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeAlreadyClaimed   Code = "ALREADY_CLAIMED"
	CodeNotYetUnlockable Code = "NOT_YET_UNLOCKABLE"
	CodeExpired          Code = "EXPIRED"

	// Deposit errors
	CodeUnregisteredAsset Code = "UNREGISTERED_ASSET"
	CodeZeroAmount        Code = "ZERO_AMOUNT"
	CodeConversionFailed  Code = "CONVERSION_FAILED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInvalidInput      Code = "INVALID_INPUT"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP response statuses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeZeroAmount, CodeInvalidInput:
		return http.StatusBadRequest

	case CodeUnauthorized:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	// State disallows the operation right now.
	case CodeAlreadyClaimed,
		CodeNotYetUnlockable,
		CodeExpired,
		CodeUnregisteredAsset,
		CodeInsufficientFunds:
		return http.StatusConflict

	// Upstream venue could not fill the conversion.
	case CodeConversionFailed:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
