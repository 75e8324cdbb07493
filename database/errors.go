package database

import "errors"

var (
	// ErrNotConnected is returned when a statement is run on a closed connection.
	ErrNotConnected = errors.New("database is not connected")

	// ErrTransaction reports a transaction call out of sequence.
	ErrTransaction = errors.New("transaction error")

	// ErrRetryExhausted is returned when every retry attempt failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)
