package domain

import "errors"

var (
	// ErrUnknownProduct is returned when a SKU is not in the catalog.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInvalidProduct is returned when catalog data is malformed.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidQuantity is returned for negative or non-finite quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrAlreadyRunToday is returned when a once-per-day routine has already run.
	ErrAlreadyRunToday = errors.New("routine already run today")

	// ErrBatchExists is returned when a SKU already has a batch for the withdrawal date.
	ErrBatchExists = errors.New("batch already withdrawn for this date")

	// ErrDataIntegrity is returned when an operation would break a batch invariant.
	ErrDataIntegrity = errors.New("data integrity violation")
)
