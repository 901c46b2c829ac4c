// Package retry decides what happens to a work item after each service call.
package retry

import (
	"fmt"
	"time"

	"github.com/kermitt2/grobid-client-go/internal/grobid"
	"github.com/kermitt2/grobid-client-go/internal/types"
)

const DefaultDelay = 5 * time.Second

type Action int

const (
	// ActionComplete hands the response body to the result writer.
	ActionComplete Action = iota
	// ActionRetry resubmits the item once Delay has elapsed.
	ActionRetry
	// ActionAbandon ends the item as failed.
	ActionAbandon
)

func (a Action) String() string {
	switch a {
	case ActionComplete:
		return "complete"
	case ActionRetry:
		return "retry"
	case ActionAbandon:
		return "abandon"
	default:
		return "unknown"
	}
}

type Decision struct {
	Action Action
	Delay  time.Duration
	Err    error
}

type Policy struct {
	// Delay is the fixed wait before a retryable item is resubmitted.
	Delay time.Duration
	// MaxTransportRetries bounds retries after connection level failures.
	MaxTransportRetries int
	// MaxBusyRetries bounds retries after 503 responses; 0 means unlimited.
	MaxBusyRetries int
}

func DefaultPolicy() *Policy {
	return &Policy{
		Delay:               DefaultDelay,
		MaxTransportRetries: 3,
	}
}

// Decide updates the item counters for the given outcome and returns the
// next action. Callers must hold the item exclusively.
func (p *Policy) Decide(item *types.WorkItem, outcome types.Outcome) Decision {
	item.Attempts++

	switch outcome.Kind {
	case types.OutcomeSuccess:
		return Decision{Action: ActionComplete}

	case types.OutcomeRetryable:
		if grobid.IsServiceBusy(outcome.Err) {
			item.BusyResponses++
			if p.MaxBusyRetries > 0 && item.BusyResponses > p.MaxBusyRetries {
				return Decision{
					Action: ActionAbandon,
					Err:    fmt.Errorf("still busy after %d retries: %w", p.MaxBusyRetries, outcome.Err),
				}
			}
			return Decision{Action: ActionRetry, Delay: p.Delay, Err: outcome.Err}
		}

		item.TransportFailures++
		if item.TransportFailures > p.MaxTransportRetries {
			return Decision{
				Action: ActionAbandon,
				Err:    fmt.Errorf("giving up after %d connection errors: %w", item.TransportFailures, outcome.Err),
			}
		}
		return Decision{Action: ActionRetry, Delay: p.Delay, Err: outcome.Err}

	default:
		return Decision{Action: ActionAbandon, Err: outcome.Err}
	}
}
