package types

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of a single service call.
type Outcome struct {
	Kind OutcomeKind
	Body []byte
	Err  error
}

func Success(body []byte) Outcome {
	return Outcome{Kind: OutcomeSuccess, Body: body}
}

func Retryable(err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Err: err}
}

func Fatal(err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Err: err}
}
