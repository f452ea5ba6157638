package domain

import "errors"

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Not-found errors
var (
	ErrStreamNotFound     = errors.New("stream not found")
	ErrDonorNotFound      = errors.New("donor account not found")
	ErrMarketNotFound     = errors.New("betting market not found")
	ErrPositionNotFound   = errors.New("bettor position not found")
	ErrResolutionNotFound = errors.New("market resolution record not found")
	ErrUserNotFound       = errors.New("user not found")
)

// Authorization errors
var (
	// ErrUnauthorized is returned when the caller is not the host (or other
	// required principal) for a host-gated operation, or when no valid bearer
	// token was presented to the API.
	ErrUnauthorized = errors.New("unauthorized: caller is not the required principal")

	// ErrForbidden is returned when an authenticated caller lacks the role
	// required for the requested operation.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not verify.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrMintMismatch is returned when a supplied token account's mint does
	// not match the stream's or market's bound mint.
	ErrMintMismatch = errors.New("mint mismatch")

	// ErrAddressMismatch is returned when a caller-supplied derived identity
	// does not match its re-derivation from the owning seed tuple.
	ErrAddressMismatch = errors.New("supplied identity does not match its re-derivation")

	// ErrOracleUnauthorized is returned when a randomness callback does not
	// originate from the oracle identity registered at request time.
	ErrOracleUnauthorized = errors.New("callback did not originate from the registered oracle")
)

// Stream state errors
var (
	ErrStreamAlreadyInitialized = errors.New("stream already initialized")
	ErrStreamAlreadyStarted     = errors.New("stream already started")
	ErrStreamNotStarted         = errors.New("stream has not been started")
	ErrStreamNotActive          = errors.New("stream is not active")
	ErrStreamAlreadyEnded       = errors.New("stream has already ended")
	ErrAlreadyRefunded          = errors.New("donor account already fully refunded")

	// ErrInvalidStatusTransition is returned by UpdateStream when the
	// requested new_status is not reachable from the stream's current status
	// per the §4.2 transition table (Ended/Cancelled are terminal).
	ErrInvalidStatusTransition = errors.New("stream status transition not permitted")
)

// Account registration errors
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// Credential errors
var (
	// ErrInvalidCredentials is returned for any login failure, whether the
	// email is unregistered or the password is wrong — never distinguish
	// the two to a caller, since that would let them enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is deactivated")
)

// Market state errors
var (
	ErrAlreadyResolved   = errors.New("market is already resolved")
	ErrMarketNotResolved = errors.New("market is not yet resolved")
	ErrMarketExpired     = errors.New("market resolution deadline has passed")
	ErrMarketResolved    = errors.New("market is already resolved")
)

// Input validation errors
var (
	ErrInvalidStreamName = errors.New("stream name must be between 4 and 32 bytes")
	ErrInvalidStreamType = errors.New("invalid stream type parameters")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidOutcome    = errors.New("outcome id out of range")
	ErrDepositNotAllowed = errors.New("deposit not allowed in current stream status")
)

// Business-rule errors
var (
	ErrDurationNotMet    = errors.New("minimum duration has not elapsed")
	ErrConditionsNotMet  = errors.New("conditional unlock requirements not met")
	ErrSlippageExceeded  = errors.New("resulting shares below minimum acceptable")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNothingToClaim    = errors.New("position holds no shares in the winning outcome")
	ErrAlreadyClaimed    = errors.New("winnings already claimed")

	// ErrInsufficientEligibleValidators is returned when fewer than
	// MinValidators candidates meet ValidatorStakeRequirement, so no
	// weighted reservoir sample can be drawn.
	ErrInsufficientEligibleValidators = errors.New("too few eligible validators meet the stake requirement")
)

// Arithmetic errors
var (
	// ErrArithmeticOverflow wraps fxmath's overflow condition at the domain
	// boundary so callers outside fxmath never need to import it directly.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrStreamNotFound,
	ErrDonorNotFound,
	ErrMarketNotFound,
	ErrPositionNotFound,
	ErrResolutionNotFound,
	ErrUserNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// stateConflictErrors collects every error that represents an operation
// rejected because a record is already in a terminal or conflicting state.
var stateConflictErrors = []error{
	ErrStreamAlreadyInitialized,
	ErrStreamAlreadyStarted,
	ErrStreamAlreadyEnded,
	ErrAlreadyRefunded,
	ErrInvalidStatusTransition,
	ErrAlreadyResolved,
	ErrMarketResolved,
	ErrAlreadyClaimed,
	ErrEmailTaken,
	ErrUsernameTaken,
}

// IsConflict returns true for errors that represent a state conflict (e.g.
// double-start or double-resolution).
func IsConflict(err error) bool {
	for _, target := range stateConflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// authErrors collects authorization/authentication-category sentinel errors.
var authErrors = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrTokenExpired,
	ErrTokenInvalid,
	ErrMintMismatch,
	ErrOracleUnauthorized,
	ErrAddressMismatch,
	ErrInvalidCredentials,
	ErrUserInactive,
}

// IsAuthError returns true for authentication/authorization-category errors.
func IsAuthError(err error) bool {
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validationErrors collects input-validation-category sentinel errors.
var validationErrors = []error{
	ErrInvalidStreamName,
	ErrInvalidStreamType,
	ErrInvalidAmount,
	ErrInvalidOutcome,
	ErrDepositNotAllowed,
}

// IsValidationError returns true for input-validation-category errors.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
