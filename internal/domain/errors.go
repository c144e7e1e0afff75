package domain

import "errors"

var (
	// ErrDuplicateTransaction is returned by the store when an insert collides
	// with the (user, date, description, amount) uniqueness constraint.
	// Batch imports skip the row and keep going.
	ErrDuplicateTransaction = errors.New("transaction already exists")

	// ErrTransactionNotFound is returned for updates or lookups against an
	// unknown transaction id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrProfileNotFound is returned when a user has not completed onboarding.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrInvalidProfile rejects profiles whose ratios do not sum to 1 or whose
	// income is negative.
	ErrInvalidProfile = errors.New("invalid user profile")

	// ErrUnclassified signals that neither keyword rules nor the model could
	// place a description. Callers resolve it to the Uncategorized category.
	ErrUnclassified = errors.New("description could not be classified")

	// ErrExternalService wraps failures of the model, Notion, or Telegram.
	// Summarization paths degrade instead of propagating it.
	ErrExternalService = errors.New("external service unavailable")
)
