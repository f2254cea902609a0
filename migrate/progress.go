package migrate

// ProgressEvent is emitted by the orchestrator after each submitted batch
// and each phase transition. Consumers subscribe through Events(); the
// orchestrator never calls into host code directly.
type ProgressEvent struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`

	// EntityType is the type being written when the event follows a
	// batch, empty on phase transitions
	EntityType string `json:"entity_type,omitempty"`

	// Batch is the 1-based batch index within the current entity type
	Batch int `json:"batch,omitempty"`

	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// progressBuffer sizes the event channel; events beyond a slow consumer's
// backlog are dropped rather than blocking a batch
const progressBuffer = 64

func (o *Orchestrator) emit(event ProgressEvent) {
	select {
	case o.events <- event:
	default:
	}
}

// Events returns the progress event stream of this orchestrator. The
// channel is closed when a run finishes.
func (o *Orchestrator) Events() <-chan ProgressEvent {
	return o.events
}
