package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrAccountExists       = errors.New("account already exists")
	ErrInvalidOutcome      = errors.New("invalid outcome")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrWalletRequired      = errors.New("wallet not connected")
	ErrMarketResolved      = errors.New("market already resolved")
	ErrNotResolvable       = errors.New("market has no external result yet")
)

// StakeErrorKind clasifica el paso del stake que falló.
type StakeErrorKind string

const (
	StakeInvalidInput         StakeErrorKind = "InvalidInput"
	StakeInitializationFailed StakeErrorKind = "InitializationFailed"
	StakeTransactionFailed    StakeErrorKind = "TransactionFailed"
)

// StakeError es el error que devuelve el orquestador de stakes.
type StakeError struct {
	Kind StakeErrorKind
	Err  error
}

func (e *StakeError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StakeError) Unwrap() error {
	return e.Err
}

// IsStakeError devuelve true si err es un *StakeError del tipo dado.
func IsStakeError(err error, kind StakeErrorKind) bool {
	var se *StakeError
	return errors.As(err, &se) && se.Kind == kind
}
