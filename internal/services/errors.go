package services

import "errors"

var (
	// ErrInvalidRequest means required input was missing or malformed. It is
	// always returned before any external call is made.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCatalogItem means an item id or option is not in the catalog.
	ErrInvalidCatalogItem = errors.New("invalid catalog item")
	// ErrIntentCreationFailed means the processor rejected or failed to create an intent.
	ErrIntentCreationFailed = errors.New("payment intent creation failed")
	// ErrConfirmationFailed means the processor declined or errored during confirmation.
	ErrConfirmationFailed = errors.New("payment confirmation failed")
	// ErrFinalizationPersistenceFailed means funds were captured but no order
	// could be recorded. It requires manual reconciliation.
	ErrFinalizationPersistenceFailed = errors.New("order could not be recorded after payment")
	// ErrNotificationFailed is non-fatal and never reverses a payment outcome.
	ErrNotificationFailed = errors.New("notification failed")

	ErrIllegalTransition  = errors.New("illegal checkout state transition")
	ErrIntentMismatch     = errors.New("payment intent does not belong to this checkout")
	ErrAttemptNotFound    = errors.New("checkout attempt not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCartNotFound       = errors.New("cart item not found")
	ErrCheckoutInProgress = errors.New("checkout already in progress for this cart")
)

// ConfirmationError carries the processor's buyer-facing reason verbatim.
type ConfirmationError struct {
	Reason string
}

func (e *ConfirmationError) Error() string {
	return e.Reason
}

func (e *ConfirmationError) Unwrap() error {
	return ErrConfirmationFailed
}
