package redeem

import "errors"

// Redemption outcomes. All are terminal for the attempt; the engine never
// retries on its own. ErrTokenAlreadyUsed and ErrTokenNotRecognized are
// expected, frequent outcomes and are not logged as system errors.
var (
	// ErrInvalidInput indicates a missing token or non-positive amount.
	ErrInvalidInput = errors.New("invalid redemption input")
	// ErrTokenNotRecognized indicates no active card carries the token.
	ErrTokenNotRecognized = errors.New("token not recognized")
	// ErrTokenAlreadyUsed indicates the token was redeemed before.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrTokenExpiredOrInvalid indicates the token failed cryptographic
	// validation within the tolerance window.
	ErrTokenExpiredOrInvalid = errors.New("token expired or invalid")
	// ErrEntitlementInactive indicates the owner has no active subscription.
	ErrEntitlementInactive = errors.New("entitlement inactive")
	// ErrEntitlementUnavailable indicates the entitlement lookup failed.
	ErrEntitlementUnavailable = errors.New("entitlement unavailable")
	// ErrStoreUnavailable indicates persistence failed mid-attempt.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCardNotFound indicates the member holds no card.
	ErrCardNotFound = errors.New("card not found")
	// ErrCardExists indicates the member already holds a card.
	ErrCardExists = errors.New("card already exists")
)
