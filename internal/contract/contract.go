package contract

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("contract not found")

type Outcome string

const (
	OutcomeAccepted        Outcome = "accepted"
	OutcomeAlreadyAccepted Outcome = "already_accepted"
	OutcomeNotFound        Outcome = "not_found"
)

// Actor is the identity recorded as having accepted a contract.
type Actor struct {
	ID string
	IP string
}

type Acceptance struct {
	ContractID int64
	Actor      Actor
	AcceptedAt time.Time
}
