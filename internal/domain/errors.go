package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOptions     = errors.New("invalid options")
	ErrGateway            = errors.New("gateway error")
	ErrUnsupported        = errors.New("operation not supported by provider")
	// ErrWebhookVerification is the cause of a gateway error for a delivery
	// whose signature does not check out.
	ErrWebhookVerification = errors.New("webhook verification failed")

	ErrRecordNotFound       = errors.New("record not found")
	ErrEditConflict         = errors.New("edit conflict")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrPaymentLocked        = errors.New("payment is being processed by another request")
)

// GatewayError wraps every failure that originates from a payment provider or
// its network. errors.Is(err, ErrGateway) holds for all of them.
type GatewayError struct {
	Provider Provider
	Op       string
	Message  string
	Err      error
}

func NewGatewayError(provider Provider, op, message string, err error) *GatewayError {
	return &GatewayError{
		Provider: provider,
		Op:       op,
		Message:  message,
		Err:      err,
	}
}

// Unsupported builds the error returned by an adapter for an operation it
// cannot perform at all.
func Unsupported(provider Provider, op string) *GatewayError {
	return &GatewayError{
		Provider: provider,
		Op:       op,
		Message:  fmt.Sprintf("%s is not possible with %s provider", op, provider),
		Err:      ErrUnsupported,
	}
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}
