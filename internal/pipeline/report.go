package pipeline

import "time"

// State is the orchestrator's position in a run.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateNormalizing
	StateAssembling
	StateConverting
	StateDelivering
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateNormalizing:
		return "normalizing"
	case StateAssembling:
		return "assembling"
	case StateConverting:
		return "converting"
	case StateDelivering:
		return "delivering"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind classifies an accumulated failure. Only conversion
// failures are fatal to a run.
type FailureKind string

const (
	KindFetch         FailureKind = "fetch"
	KindNormalization FailureKind = "normalization"
	KindAssemblyLimit FailureKind = "assembly_limit"
	KindConversion    FailureKind = "conversion"
	KindDelivery      FailureKind = "delivery"
)

// Failure is one diagnosable problem from a run: which stage, which
// source or destination, and what went wrong.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	ID      string      `json:"id,omitempty"`
	Message string      `json:"message"`
}

// SourceReport covers one source's fetch and normalization outcome.
type SourceReport struct {
	SourceID         string `json:"source_id"`
	OK               bool   `json:"ok"`
	Fetched          int    `json:"fetched"`
	Normalized       int    `json:"normalized"`
	DroppedEmpty     int    `json:"dropped_empty,omitempty"`
	DroppedDuplicate int    `json:"dropped_duplicate,omitempty"`
	Error            string `json:"error,omitempty"`
}

type AssemblyReport struct {
	TotalArticles int `json:"total_articles"`
	Truncated     int `json:"truncated,omitempty"`
}

type ConversionReport struct {
	Attempted bool   `json:"attempted"`
	OK        bool   `json:"ok"`
	Format    string `json:"format,omitempty"`
	Bytes     int    `json:"bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

type DeliveryReport struct {
	DestinationID string `json:"destination_id"`
	OK            bool   `json:"ok"`
	Error         string `json:"error,omitempty"`
}

// RunReport is the sole externally observable result of one run. Every
// failure is enumerated here; the pipeline never raises one past a full
// run invocation.
type RunReport struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	State      State            `json:"-"`
	StateName  string           `json:"state"`
	Sources    []SourceReport   `json:"sources"`
	Assembly   AssemblyReport   `json:"assembly"`
	Conversion ConversionReport `json:"conversion"`
	Deliveries []DeliveryReport `json:"deliveries,omitempty"`
	Failures   []Failure        `json:"failures,omitempty"`
	Success    bool             `json:"success"`
}

func (r *RunReport) addFailure(kind FailureKind, id, message string) {
	r.Failures = append(r.Failures, Failure{Kind: kind, ID: id, Message: message})
}

func (r *RunReport) finish(state State) *RunReport {
	r.State = state
	r.StateName = state.String()
	r.FinishedAt = time.Now().UTC()
	return r
}
