package payment

import "errors"

var (
	ErrPaymentNotFound = errors.New("payment request not found")
	ErrPaymentFailed   = errors.New("payment failed or cancelled by user")
	ErrGatewayFailure  = errors.New("payment gateway error")
	ErrAlreadyPaid     = errors.New("platform fee already paid for the current period")
)
