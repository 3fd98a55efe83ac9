package observability

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a recovered panic value returned as an error
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// RecoverPanic logs a panic with its stack instead of crashing. It must be
// deferred directly:
//
//	go func() {
//	    defer observability.RecoverPanic(logger, "watch loop")
//	    ...
//	}()
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		if logger == nil {
			logger = NewNopLogger()
		}
		logger.WithFields(map[string]interface{}{
			"panic": fmt.Sprint(r),
			"stack": string(debug.Stack()),
			"where": where,
		}).Error("panic recovered")
	}
}

// MustRecover turns the result of recover() into a *PanicError, or nil
//
//	defer func() {
//	    if perr := observability.MustRecover(recover()); perr != nil {
//	        err = perr
//	    }
//	}()
func MustRecover(r any) error {
	if r == nil {
		return nil
	}
	return &PanicError{Value: r, Stack: debug.Stack()}
}
