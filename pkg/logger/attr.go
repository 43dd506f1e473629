package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Key records the bucket key under the key "gate_key".
func Key(key string) slog.Attr {
	return slog.String("gate_key", key)
}

// ExecutionID records the execution identifier under the key "execution_id".
// If id is nil, it returns an empty Attr.
func ExecutionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("execution_id", id)
}

// Reason records a rejection reason under the key "reason".
func Reason(reason any) slog.Attr {
	return slog.Any("reason", reason)
}

// Strategy records the timeout enforcement strategy under the key "strategy".
func Strategy(strategy any) slog.Attr {
	return slog.Any("strategy", strategy)
}

// Outcome records the terminal state of an execution under the key "outcome".
func Outcome(outcome any) slog.Attr {
	return slog.Any("outcome", outcome)
}

// Tokens records a token amount under the key "tokens".
func Tokens(n float64) slog.Attr {
	return slog.Float64("tokens", n)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
