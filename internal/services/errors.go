// Package services defines the business logic for gift lists, guest claims,
// notifications, and points. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Guest-flow errors.
var (
	// ErrListNotFound indicates that no public list matches the presented
	// access code. A wrong code and an existing-but-private list are
	// deliberately the same error so private lists cannot be probed.
	ErrListNotFound = errors.New("list not found")

	// ErrProductNotFound indicates that the requested product does not exist
	// or does not belong to the resolved list.
	ErrProductNotFound = errors.New("product not found")

	// ErrAlreadyClaimed is returned when the conditional claim write matched
	// no row because someone else claimed the product first.
	ErrAlreadyClaimed = errors.New("product already claimed")

	// ErrInvalidLink indicates that the unclaim credential does not match the
	// product's current credential (wrong link or already consumed). This
	// state is terminal per link; retrying cannot succeed.
	ErrInvalidLink = errors.New("invalid or expired unclaim link")

	// ErrInvalidName is returned when the claimer display name is empty
	// after trimming. No persistence call is made.
	ErrInvalidName = errors.New("claimer name is required")

	// ErrInvalidEmail is returned when the claimer email does not match a
	// standard local@domain.tld shape. No persistence call is made.
	ErrInvalidEmail = errors.New("claimer email is invalid")
)

// Owner-flow errors.
var (
	// ErrEmptyListName is returned when a list is created or renamed with a
	// blank display name.
	ErrEmptyListName = errors.New("list name is required")

	// ErrEmptyProductName is returned when a product is created with a blank
	// display name.
	ErrEmptyProductName = errors.New("product name is required")

	// ErrInvalidNotificationLevel is returned when an update carries a
	// preference outside none|who_only|what_only|both.
	ErrInvalidNotificationLevel = errors.New("notification level must be one of: none, who_only, what_only, both")

	// ErrCodeExhausted is returned when access-code generation keeps
	// colliding with existing lists; practically unreachable at the
	// configured code length.
	ErrCodeExhausted = errors.New("could not generate a unique access code")

	// ErrEmptyToken is returned when a device registration carries a blank
	// push token.
	ErrEmptyToken = errors.New("push token is required")
)
