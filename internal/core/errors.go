package core

import "errors"

// Period and aggregation errors.
var (
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrUnsupportedRuleKind = errors.New("unsupported tax rule kind")
	ErrNotFound            = errors.New("record not found")
	ErrTransactionFailure  = errors.New("transaction failure")
)

// Validation errors.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidRate          = errors.New("invalid exchange rate")
	ErrInvalidCurrency      = errors.New("invalid currency code")
	ErrInvalidDate          = errors.New("invalid date")
	ErrEmptyName            = errors.New("empty name")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long")
	ErrUnsupportedEventKind = errors.New("unsupported event kind")
)

// Account errors.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
)
