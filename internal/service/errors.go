package service

import "errors"

var (
	// ErrInsufficientBalance indicates the user doesn't have enough tokens.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrPersonaNotFound indicates the persona does not exist.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrPaymentNotFound indicates no payment record matches the intent id.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDuplicatePaymentIntent indicates a pending payment already exists
	// for the payment intent id.
	ErrDuplicatePaymentIntent = errors.New("duplicate payment intent")

	// ErrQuotaExceeded indicates the daily generation cap has been hit.
	ErrQuotaExceeded = errors.New("daily generation quota exceeded")

	// ErrUnknownPackage indicates the token package id is not in the catalog.
	ErrUnknownPackage = errors.New("unknown token package")
)
