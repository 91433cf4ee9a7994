// Package errors defines the relayer's error taxonomy: ConnectionError,
// ChainError, TxError, SignatureMismatch and MissingHashError, plus the
// missing-key sentinel. Each is a distinct type rather than a sentinel
// value so call sites can use errors.As to recover the failed
// chain/hash/etc. without string matching (e.g. TxError.IsAlreadyKnown).
package errors

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingOwnerKey signals OWNER_PRIVATE_KEY was not set. It is fatal
// per-relay, not fatal to the process: the ingestor keeps running so
// dedup state isn't orphaned ahead of a record that never gets
// persisted.
var ErrMissingOwnerKey = errors.New("OWNER_PRIVATE_KEY is required")

// ConnectionError signals a dead transport: the supervisor should
// reconnect with backoff rather than surface this to a caller.
type ConnectionError struct {
	Chain string
	Err   error
}

func (e *ConnectionError) Error() string {
	return "connection error on " + e.Chain + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func NewConnectionError(chain string, err error) *ConnectionError {
	return &ConnectionError{Chain: chain, Err: err}
}

// ChainError signals an RPC-returned error on a read call. It is logged
// and the current intent/pass is abandoned; the backfiller will retry.
type ChainError struct {
	Method string
	Err    error
}

func (e *ChainError) Error() string {
	return "chain error calling " + e.Method + ": " + e.Err.Error()
}

func (e *ChainError) Unwrap() error { return e.Err }

func NewChainError(method string, err error) *ChainError {
	return &ChainError{Method: method, Err: err}
}

// TxError signals a rejected submission. The substring "already known" is
// a soft condition (another attempt already owns the hash) rather than a
// genuine failure; IsAlreadyKnown reports that case so callers can avoid
// transitioning a record's status or creating a duplicate.
type TxError struct {
	Method string
	Err    error
}

func (e *TxError) Error() string {
	return "tx error calling " + e.Method + ": " + e.Err.Error()
}

func (e *TxError) Unwrap() error { return e.Err }

func NewTxError(method string, err error) *TxError {
	return &TxError{Method: method, Err: err}
}

func (e *TxError) IsAlreadyKnown() bool {
	return strings.Contains(strings.ToLower(e.Err.Error()), "already known")
}

// SignatureMismatch signals that the address recovered from a freshly
// produced (digest, signature) pair did not match the configured
// signer's address. This can only mean a bug in digest construction or
// signing — there is no retry path.
type SignatureMismatch struct {
	Expected string
	Got      string
}

func (e *SignatureMismatch) Error() string {
	return "signature mismatch: expected " + e.Expected + ", recovered " + e.Got
}

func NewSignatureMismatch(expected, got string) *SignatureMismatch {
	return &SignatureMismatch{Expected: expected, Got: got}
}

// NetworkChangedError signals the "network-changed" transport event:
// the RPC endpoint started reporting a different
// chain ID than the one it reported when the connection was established,
// typically because it sits behind a failover load balancer. The
// Supervisor treats this as a reason to log and reset retry state rather
// than as a failure worth reconnecting over.
type NetworkChangedError struct {
	Chain           string
	PreviousChainID uint64
	NewChainID      uint64
}

func (e *NetworkChangedError) Error() string {
	return "network changed on " + e.Chain
}

func (e *NetworkChangedError) NetworkChanged() bool { return true }

func NewNetworkChangedError(chain string, previous, new uint64) *NetworkChangedError {
	return &NetworkChangedError{Chain: chain, PreviousChainID: previous, NewChainID: new}
}

// MissingHashError signals that none of the known hash-bearing fields
// were present on an observed event. The event is dropped.
type MissingHashError struct {
	EventName string
}

func (e *MissingHashError) Error() string {
	return "event " + e.EventName + " carries no transaction hash in any known field"
}
