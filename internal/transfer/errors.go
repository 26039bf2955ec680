package transfer

import "errors"

// Internal failure taxonomy for redemption. Every one of these maps to a
// 403 at the boundary; the distinctions exist for logging and for choosing
// the user-facing message.
var (
	ErrTokenMalformed     = errors.New("transfer: token malformed")
	ErrTokenExpired       = errors.New("transfer: token expired")
	ErrSubjectInvalid     = errors.New("transfer: token subject invalid")
	ErrLinkNotFound       = errors.New("transfer: link not found")
	ErrOwnerChanged       = errors.New("transfer: link owner changed since issuance")
	ErrIssuerUnauthorized = errors.New("transfer: issuer no longer holds mutate rights")
	ErrCrossOrganization  = errors.New("transfer: redeemer organization mismatch")
)

// genericDenied is shown whenever the real reason would aid forgery
// attempts. Expiry and ownership changes are not security-sensitive and get
// specific messages instead.
const genericDenied = "Your transfer link is no longer valid"

// RedeemError pairs the internal reason with the message shown to the
// redeeming user.
type RedeemError struct {
	Reason      error
	UserMessage string
}

func (e *RedeemError) Error() string { return e.Reason.Error() }

func (e *RedeemError) Unwrap() error { return e.Reason }

func redeemError(reason error, userMessage string) *RedeemError {
	if userMessage == "" {
		userMessage = genericDenied
	}
	return &RedeemError{Reason: reason, UserMessage: userMessage}
}
