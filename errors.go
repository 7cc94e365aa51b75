package lit

import (
	"errors"
	"fmt"

	"github.com/0x5487/lit-engine/protocol"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidParam      = errors.New("the param is invalid")
	ErrTimeout           = errors.New("timeout")
	ErrShutdown          = errors.New("instrument is shutting down")
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// RejectError is a construction-time validation reject. It is a normal,
// recoverable outcome for the caller, never an engine failure.
type RejectError struct {
	Reason protocol.RejectReason
}

func (e *RejectError) Error() string {
	return "order rejected: " + string(e.Reason)
}

// IsDarkOrderReject reports whether err is the distinct reject raised when a
// dark order reaches this lit engine.
func IsDarkOrderReject(err error) bool {
	var reject *RejectError
	return errors.As(err, &reject) && reject.Reason == protocol.RejectReasonDarkOrder
}

// FaultError reports a broken internal invariant (e.g. a mis-ordered book
// observed during matching). It is never a client-facing reject: the engine
// halts matching for the instrument until the fault is investigated.
type FaultError struct {
	SecurityID uint32
	Detail     string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("engine fault on instrument %d: %s", e.SecurityID, e.Detail)
}
