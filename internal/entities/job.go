package entities

import "time"

// PayloadKind distinguishes jobs carrying a ready-to-send body from
// jobs whose reply still has to be resolved by the answer engine.
type PayloadKind int

const (
	PayloadPrecomputed PayloadKind = iota
	PayloadNeedsResolution
)

// Sender delivers one outbound message on a platform. The concrete
// sender is chosen when the job is built, not when it is processed.
type Sender interface {
	SendMessage(to, content string) error
}

// DispatchJob is a unit of outbound work. Ownership moves from the
// producer to the queue on enqueue and to exactly one worker on dequeue.
type DispatchJob struct {
	JobID      string
	Platform   string
	To         string
	Kind       PayloadKind
	Text       string
	Sender     Sender
	Attempts   int
	EnqueuedAt time.Time
}

// EnqueueReceipt reports where a job landed. Position is the queue
// depth right after insertion; ETASeconds is a heuristic, not a promise.
type EnqueueReceipt struct {
	JobID      string `json:"job_id"`
	Position   int    `json:"position"`
	ETASeconds int    `json:"eta_seconds"`
}
