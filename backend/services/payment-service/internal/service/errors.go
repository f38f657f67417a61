package service

import "errors"

var (
	// ErrNoActiveSession means the plate has no active parking session.
	ErrNoActiveSession = errors.New("no active parking session found for this plate")
	// ErrSessionNotFound means the session does not exist or has already exited.
	ErrSessionNotFound = errors.New("session not found or already exited")
	// ErrHistoryNotFound means the plate has never parked.
	ErrHistoryNotFound = errors.New("no parking sessions found for this plate")
	// ErrPersistence wraps any ledger read or write failure. The transaction was rolled back.
	ErrPersistence = errors.New("payment ledger unavailable")
	// ErrInternalInconsistency is returned when the ledger contradicts a write made in the same transaction.
	ErrInternalInconsistency = errors.New("payment ledger inconsistent")
)
