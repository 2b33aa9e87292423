package db

import "fmt"

// ConnectionError reports a failure to establish the database connection.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError reports a driver-side execution failure, carrying the
// server severity and error number when the server provided them.
type CommandError struct {
	Severity    *int
	ErrorNumber *int
	Err         error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed: %v", e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CancellationError reports that execution stopped because the external
// cancellation signal fired.
type CancellationError struct {
	Err error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("execution cancelled: %v", e.Err)
}

func (e *CancellationError) Unwrap() error { return e.Err }
