package models

import (
	"errors"
	"fmt"
)

// Core sentinels. Services wrap these with fmt.Errorf("%w: ...") context;
// callers branch with errors.Is and the HTTP layer maps them to status codes.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidStatus       = errors.New("invalid status transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Marketplace-specific refinements of ErrInvalidStatus. Each carries the
// generic sentinel in its chain so a caller that only cares about "state
// conflict" can still match on ErrInvalidStatus.
var (
	ErrListingClosed      = fmt.Errorf("%w: listing is closed for bids", ErrInvalidStatus)
	ErrBidTooLow          = fmt.Errorf("%w: bid does not beat the current highest", ErrInvalidStatus)
	ErrListingUnavailable = fmt.Errorf("%w: listing is no longer available", ErrInvalidStatus)
	ErrCreditListed       = fmt.Errorf("%w: credit already has an active listing", ErrInvalidStatus)
	ErrAlreadyDisputed    = fmt.Errorf("%w: transaction already has an open dispute", ErrInvalidStatus)
	ErrAlreadyResolved    = fmt.Errorf("%w: dispute is already resolved", ErrInvalidStatus)
)
