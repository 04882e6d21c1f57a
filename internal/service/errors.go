package service

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrOrderNotFound   = errors.New("order not found")
	ErrItemNotFound    = errors.New("order item not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrEmptyItems       = errors.New("empty items")
	ErrQuantityInvalid  = errors.New("quantity must be > 0")
	ErrNegativeAmount   = errors.New("monetary amount must not be negative")
	ErrAmountInvalid    = errors.New("amount must be > 0")
	ErrCurrencyInvalid  = errors.New("currency code must be 3 characters")
	ErrCustomerRequired = errors.New("order requires a user or a guest email")
	ErrUnknownStatus    = errors.New("unknown status")

	ErrNotPending    = errors.New("operation allowed only in pending status")
	ErrTerminalState = errors.New("status is terminal")

	ErrRefundExceedsQuantity = errors.New("refund quantity exceeds remaining quantity")
	ErrRefundExceedsAmount   = errors.New("refund amount exceeds remaining amount")
	ErrNotRefundable         = errors.New("payment is not refundable in its current status")
	ErrRetryNotAllowed       = errors.New("only failed payments can be retried")

	ErrDuplicateTransaction = errors.New("transaction id already exists")
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")
)
