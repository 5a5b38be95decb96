package services

import "errors"

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrInvalidLedger           = errors.New("invalid ledger")
	ErrNotFound                = errors.New("not found")
	ErrBelowMinimum            = errors.New("below minimum redemption")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrAlreadyProcessed        = errors.New("redemption already processed")
	ErrInvalidRedemptionType   = errors.New("invalid redemption type")
	ErrInvalidAction           = errors.New("invalid action")
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrDuplicateWeeklyCredit   = errors.New("weekly credit already recorded")
	ErrInvalidAttendanceStatus = errors.New("invalid attendance status")
)
