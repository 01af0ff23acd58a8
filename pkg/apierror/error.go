package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error represents a structured API error response. Validation outcomes of
// the purchase/equip flows (not owned, insufficient funds, ...) are expected
// results and travel as *Error values, never as panics.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}

	data, _ := json.Marshal(response)
	return data
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// ModelNotFound indicates the model id does not resolve to an enabled
// catalog entry.
func ModelNotFound(modelID string) *Error {
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "MODEL_NOT_FOUND",
		Message:    fmt.Sprintf("model %q does not exist or is disabled", modelID),
	}
}

// PermissionDenied indicates the player fails the model's availability
// filter (permission, VIP gate or allow-list).
func PermissionDenied(modelID string) *Error {
	return &Error{
		StatusCode: http.StatusForbidden,
		Code:       "PERMISSION_DENIED",
		Message:    fmt.Sprintf("you are not allowed to use model %q", modelID),
	}
}

// AlreadyOwned indicates a purchase of a model the player already owns.
func AlreadyOwned(modelID string) *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       "ALREADY_OWNED",
		Message:    fmt.Sprintf("you already own model %q", modelID),
	}
}

// NotOwned indicates an equip of a paid model the player has not purchased.
func NotOwned(modelID string) *Error {
	return &Error{
		StatusCode: http.StatusForbidden,
		Code:       "NOT_OWNED",
		Message:    fmt.Sprintf("you do not own model %q", modelID),
	}
}

// InsufficientFunds carries the required and current amounts so the caller
// can render a precise message.
func InsufficientFunds(required, current int64, walletKind string) *Error {
	return &Error{
		StatusCode: http.StatusPaymentRequired,
		Code:       "INSUFFICIENT_FUNDS",
		Message:    fmt.Sprintf("insufficient funds: required %d %s, current %d %s", required, walletKind, current, walletKind),
	}
}

// EconomyUnavailable indicates no wallet collaborator is connected.
func EconomyUnavailable() *Error {
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "ECONOMY_UNAVAILABLE",
		Message:    "economy service is not available",
	}
}

// PurchaseDisabled indicates the purchase system is switched off in config.
func PurchaseDisabled() *Error {
	return &Error{
		StatusCode: http.StatusForbidden,
		Code:       "PURCHASE_DISABLED",
		Message:    "the model purchase system is disabled",
	}
}

// PersistenceFailure wraps a ledger read/write error that must surface to
// the caller.
func PersistenceFailure(op string, err error) *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "PERSISTENCE_FAILURE",
		Message:    fmt.Sprintf("storage operation %s failed: %v", op, err),
	}
}

// CatalogLoadFailure reports a failed catalog reload to the administrator.
func CatalogLoadFailure(err error) *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "CATALOG_LOAD_FAILURE",
		Message:    fmt.Sprintf("catalog reload failed, previous snapshot kept: %v", err),
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}
