package migrate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orglens/orgsync/types"
)

// Phase is one state of the migration state machine
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseRootExported Phase = "root_exported"
	PhaseAuxMapped    Phase = "aux_mapped"
	PhaseRootWritten  Phase = "root_written"
	PhaseChildren     Phase = "children_processing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Session is the mutable state threading through one migration run. It is
// created at run start, mutated only by the orchestrator, and discarded
// (or exported as an audit record) at run end. Never shared across
// concurrent runs.
type Session struct {
	ID            string               `json:"id"`
	RootType      string               `json:"root_type"`
	RootIDs       []string             `json:"root_ids"`
	Relationships []types.Relationship `json:"relationships"`
	Phase         Phase                `json:"phase"`

	// IDMap maps old root identifiers to their new identifiers in the
	// target; only records the remote reported as successful appear
	IDMap map[string]string `json:"id_map"`

	// AuxMap maps old auxiliary-reference identifiers to their target
	// counterparts, resolved by natural name
	AuxMap map[string]string `json:"aux_map"`

	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`

	// Errors is the flat, human-readable accumulation of everything
	// that went wrong; a run with a non-empty list can still be Done
	Errors []string `json:"errors"`

	// Log is the ordered outcome trail of the run
	Log []LogEntry `json:"log"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// LogEntry is one line of the session's outcome trail
type LogEntry struct {
	Time    time.Time `json:"time"`
	Phase   Phase     `json:"phase"`
	Message string    `json:"message"`
}

// NewSession creates the session for one run
func NewSession(rootType string, rootIDs []string, relationships []types.Relationship) *Session {
	return &Session{
		ID:            uuid.NewString(),
		RootType:      rootType,
		RootIDs:       rootIDs,
		Relationships: relationships,
		Phase:         PhaseIdle,
		IDMap:         make(map[string]string),
		AuxMap:        make(map[string]string),
		StartedAt:     time.Now().UTC(),
	}
}

func (s *Session) transition(phase Phase) {
	s.Phase = phase
	s.logf(phase, "entered phase")
}

func (s *Session) logf(phase Phase, format string, args ...interface{}) {
	s.Log = append(s.Log, LogEntry{
		Time:    time.Now().UTC(),
		Phase:   phase,
		Message: fmt.Sprintf(format, args...),
	})
}

func (s *Session) addError(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	s.Errors = append(s.Errors, message)
	s.logf(s.Phase, "error: %s", message)
}

// Result freezes the session into the serializable run outcome
func (s *Session) Result() *MigrationResult {
	return &MigrationResult{
		SessionID:  s.ID,
		RootType:   s.RootType,
		Phase:      s.Phase,
		Success:    s.Success,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		IDMap:      s.IDMap,
		AuxMap:     s.AuxMap,
		Errors:     s.Errors,
		Log:        s.Log,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

// MigrationResult is the serializable end-to-end outcome of one run. A
// Done result with a non-empty error list is a partial success and must
// stay distinguishable from a fully clean run.
type MigrationResult struct {
	SessionID  string            `json:"session_id"`
	RootType   string            `json:"root_type"`
	Phase      Phase             `json:"phase"`
	Success    int               `json:"success"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	IDMap      map[string]string `json:"id_map"`
	AuxMap     map[string]string `json:"aux_map"`
	Errors     []string          `json:"errors"`
	Log        []LogEntry        `json:"log"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Clean reports whether the run finished without any accumulated error
func (r *MigrationResult) Clean() bool {
	return r.Phase == PhaseDone && len(r.Errors) == 0 && r.Skipped == 0
}
