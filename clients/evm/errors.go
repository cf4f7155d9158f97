package evm

import (
	"context"
	"net"

	"github.com/ethereum/go-ethereum"
	"github.com/pkg/errors"
)

// ErrorKind classifies an RPC failure so callers can branch on the class of
// failure instead of matching substrings of provider error text.
type ErrorKind int

const (
	// KindUnknown is any failure the classifier cannot attribute.
	KindUnknown ErrorKind = iota
	// KindUnavailable covers transport failures and timeouts; the call may
	// succeed on retry against the same or another endpoint.
	KindUnavailable
	// KindRevert is an execution revert reported by the node; retrying the
	// same call will fail the same way.
	KindRevert
	// KindNotFound is the node reporting a missing object (block, receipt).
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRevert:
		return "revert"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// rpcError is the subset of the JSON-RPC error interfaces implemented by
// go-ethereum's rpc package errors. Checked structurally so the classifier
// works for any provider that speaks the protocol.
type rpcError interface {
	Error() string
	ErrorCode() int
}

type dataError interface {
	Error() string
	ErrorData() interface{}
}

// Classify maps an error from an RPC call to its ErrorKind using typed
// checks only.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindUnavailable
	}

	if errors.Is(err, ethereum.NotFound) {
		return KindNotFound
	}

	// Reverts surface as JSON-RPC errors carrying the return data
	// (code 3) or the legacy -32000 execution error code.
	var de dataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		return KindRevert
	}

	var re rpcError
	if errors.As(err, &re) {
		switch re.ErrorCode() {
		case 3, -32000, -32015:
			return KindRevert
		case -32601, -32602:
			return KindUnknown
		default:
			return KindUnavailable
		}
	}

	return KindUnknown
}

// IsRetryable reports whether a call that produced err is worth retrying.
func IsRetryable(err error) bool {
	return Classify(err) == KindUnavailable
}
