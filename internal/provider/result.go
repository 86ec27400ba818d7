package provider

import (
	"errors"
	"log/slog"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransport
	KindUnsupported
	KindValidation
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindUnsupported:
		return "unsupported"
	case KindValidation:
		return "validation"
	case KindProvider:
		return "provider"
	}
	return "unknown"
}

// Result is the outcome of a provider write path.
type Result struct {
	Kind ErrorKind
	Err  error
}

func Succeeded() Result { return Result{Kind: KindNone} }

func Failed(kind ErrorKind, err error) Result { return Result{Kind: kind, Err: err} }

// Classify maps an error from a write path to a Result.
func Classify(err error) Result {
	if err == nil {
		return Succeeded()
	}
	var perr *ProviderError
	switch {
	case errors.As(err, &perr):
		return Failed(KindProvider, err)
	case errors.Is(err, ErrUnsupported):
		return Failed(KindUnsupported, err)
	case errors.Is(err, ErrValidation):
		return Failed(KindValidation, err)
	default:
		return Failed(KindTransport, err)
	}
}

func (r Result) OK() bool { return r.Kind == KindNone }

// Outcome converts the result to the public (bool, error) contract.
// Transport and unsupported failures are logged and reported as false;
// provider errors are propagated.
func (r Result) Outcome(log *slog.Logger, op string) (bool, error) {
	switch r.Kind {
	case KindNone:
		return true, nil
	case KindUnsupported:
		log.Warn("Operation not supported by provider", "operation", op, "error", r.Err)
		return false, nil
	case KindTransport:
		var terr *TransportError
		if errors.As(r.Err, &terr) && terr.Body != "" {
			log.Error("Provider request failed", "operation", op, "status", terr.StatusCode, "body", terr.Body)
		} else {
			log.Error("Provider request failed", "operation", op, "error", r.Err)
		}
		return false, nil
	default:
		return false, r.Err
	}
}
