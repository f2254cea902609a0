package migrate

import (
	"context"
	"strings"
	"time"

	"github.com/orglens/orgsync/core"
	"github.com/orglens/orgsync/core/auth"
	"github.com/orglens/orgsync/helpers/logging"
	"github.com/orglens/orgsync/types"
)

// Orchestrator drives one end-to-end migration run through the phases
// Idle -> RootExported -> AuxMapped -> RootWritten -> ChildrenProcessing
// -> Done|Failed. Use one orchestrator per run; the session is owned by
// the orchestrator and never shared.
//
// The run is idempotent at the batch level only when the configuration
// names an external-reference field; without one, re-running creates
// duplicates.
type Orchestrator struct {
	conn   core.Connection
	cfg    *core.EngineConfig
	log    *logging.Logger
	events chan ProgressEvent
}

// NewOrchestrator creates an orchestrator over the host's platform
// connection
func NewOrchestrator(conn core.Connection, cfg *core.EngineConfig) *Orchestrator {
	if cfg == nil {
		cfg = core.DefaultEngineConfig()
	}
	return &Orchestrator{
		conn:   conn,
		cfg:    cfg,
		log:    logging.MigrateLogger,
		events: make(chan ProgressEvent, progressBuffer),
	}
}

// MigrationRequest selects what one run migrates
type MigrationRequest struct {
	Source *types.Environment `json:"source"`
	Target *types.Environment `json:"target"`

	// RootType and RootIDs select the root record set
	RootType string   `json:"root_type"`
	RootIDs  []string `json:"root_ids"`

	// RootFields are the createable attributes exported for each root
	// record; the engine adds Id and the auxiliary reference field
	RootFields []string `json:"root_fields"`

	// Relationships are the selected child relationships to migrate
	Relationships []types.Relationship `json:"relationships"`

	// ChildFields lists the exported attributes per child type
	ChildFields map[string][]string `json:"child_fields,omitempty"`
}

// Run executes the migration. It returns an error only for configuration
// problems detected before any remote call; every remote failure is
// folded into the result, so a partial success stays representable.
func (o *Orchestrator) Run(ctx context.Context, req *MigrationRequest) (*MigrationResult, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	session := NewSession(req.RootType, req.RootIDs, req.Relationships)
	defer close(o.events)

	if info, ok := auth.FromAuth(ctx); ok && info.Claims.Subject != "" {
		session.logf(PhaseIdle, "run initiated by %s", info.Claims.Subject)
	}

	o.log.InfoWithFields("migration run starting",
		"run_id", session.ID, "root_type", req.RootType,
		"roots", len(req.RootIDs), "relationships", len(req.Relationships))

	result := o.run(ctx, req, session)

	o.log.InfoWithFields("migration run finished",
		"run_id", session.ID, "phase", string(result.Phase),
		"success", result.Success, "failed", result.Failed,
		"skipped", result.Skipped, "errors", len(result.Errors))

	return result, nil
}

func (o *Orchestrator) validate(req *MigrationRequest) error {
	switch {
	case req == nil:
		return core.NewConfigurationError("migration request cannot be nil")
	case req.Source == nil || req.Target == nil:
		return core.NewConfigurationError("both source and target environments are required")
	case req.Source.Same(req.Target):
		return core.NewConfigurationError("source and target environments are identical")
	case req.RootType == "":
		return core.NewConfigurationError("root type cannot be empty")
	case len(req.RootIDs) == 0:
		return core.NewConfigurationError("zero root identifiers selected")
	case len(req.Relationships) == 0:
		return core.NewConfigurationError("no relationships selected")
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, req *MigrationRequest, session *Session) *MigrationResult {
	fail := func() *MigrationResult {
		session.transition(PhaseFailed)
		session.FinishedAt = time.Now().UTC()
		o.emit(o.phaseEvent(session))
		return session.Result()
	}

	// Idle -> RootExported
	roots, err := o.exportRoots(ctx, req, session)
	if err != nil {
		session.addError("root export failed: %v", err)
		return fail()
	}
	if len(roots) == 0 {
		session.addError("zero root records exported for %s", req.RootType)
		return fail()
	}
	session.transition(PhaseRootExported)
	session.logf(PhaseRootExported, "exported %d root records", len(roots))
	o.emit(o.phaseEvent(session))

	// RootExported -> AuxMapped
	if err := o.buildAuxMap(ctx, req, session, roots); err != nil {
		session.addError("%v", err)
		return fail()
	}
	session.transition(PhaseAuxMapped)
	o.emit(o.phaseEvent(session))

	// AuxMapped -> RootWritten
	if ok := o.writeRoots(ctx, req, session, roots); !ok {
		session.addError("write transport unreachable while writing %s", req.RootType)
		return fail()
	}
	session.transition(PhaseRootWritten)
	session.logf(PhaseRootWritten, "wrote %d of %d root records", len(session.IDMap), len(roots))
	o.emit(o.phaseEvent(session))

	// RootWritten -> ChildrenProcessing. Child foreign-key remapping
	// depends on the root identifier map being complete, so children
	// never start before the root phase ends.
	session.transition(PhaseChildren)
	for _, rel := range req.Relationships {
		o.processRelationship(ctx, req, session, rel)
	}

	session.transition(PhaseDone)
	session.FinishedAt = time.Now().UTC()
	o.emit(o.phaseEvent(session))
	return session.Result()
}

func (o *Orchestrator) phaseEvent(session *Session) ProgressEvent {
	return ProgressEvent{
		SessionID: session.ID,
		Phase:     session.Phase,
		Success:   session.Success,
		Failed:    session.Failed,
		Skipped:   session.Skipped,
	}
}

// exportRoots fetches the createable attributes of the selected root
// records from the source environment. A transport failure here is fatal
// to the run.
func (o *Orchestrator) exportRoots(ctx context.Context, req *MigrationRequest, session *Session) ([]types.Record, error) {
	fields := o.exportFields(req.RootFields)

	var records []types.Record
	for _, chunk := range chunkStrings(req.RootIDs, o.cfg.ChunkSize) {
		got, err := o.query(ctx, req.Source, &core.StructuredQuery{
			EntityType: req.RootType,
			Fields:     fields,
			InField:    "Id",
			In:         chunk,
		})
		if err != nil {
			return nil, core.NewTransportError("root export", req.RootType, err)
		}
		records = append(records, got...)
	}
	return records, nil
}

// buildAuxMap derives the old->new identifier map of the configured
// auxiliary reference dimension by resolving natural names on both sides.
// Zero matches on either side is a soft degradation: the run continues
// without remapping, unless strict mode is on.
func (o *Orchestrator) buildAuxMap(ctx context.Context, req *MigrationRequest, session *Session, roots []types.Record) error {
	aux := o.cfg.AuxReference
	if aux == nil {
		return nil
	}

	oldIDs := distinctValues(roots, aux.Field)
	if len(oldIDs) == 0 {
		return nil
	}

	idToName, err := o.resolveAuxNames(ctx, req.Source, oldIDs, aux, "Id")
	if err != nil {
		return o.softAuxFailure(session, aux, err)
	}

	names := make([]string, 0, len(idToName))
	seen := make(map[string]struct{}, len(idToName))
	for _, name := range idToName {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	nameToNew := map[string]string{}
	if len(names) > 0 {
		byName, err := o.resolveAuxNames(ctx, req.Target, names, aux, aux.NameField)
		if err != nil {
			return o.softAuxFailure(session, aux, err)
		}
		for id, name := range byName {
			nameToNew[name] = id
		}
	}

	var unmapped []string
	for _, oldID := range oldIDs {
		name, ok := idToName[oldID]
		if !ok {
			unmapped = append(unmapped, oldID)
			continue
		}
		newID, ok := nameToNew[name]
		if !ok {
			unmapped = append(unmapped, oldID)
			continue
		}
		session.AuxMap[oldID] = newID
	}

	if len(unmapped) > 0 {
		if o.cfg.StrictAux {
			return core.NewConfigurationError("strict aux mapping: %d %s reference(s) have no match in the target",
				len(unmapped), aux.LookupType)
		}
		session.logf(session.Phase, "%d %s reference(s) left unmapped; continuing without remap",
			len(unmapped), aux.LookupType)
	}

	return nil
}

// resolveAuxNames queries a lookup type's Id and name attributes matching
// the given values against inField, returning id -> name
func (o *Orchestrator) resolveAuxNames(ctx context.Context, env *types.Environment, values []string, aux *core.AuxReferenceConfig, inField string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, chunk := range chunkStrings(values, o.cfg.ChunkSize) {
		records, err := o.query(ctx, env, &core.StructuredQuery{
			EntityType: aux.LookupType,
			Fields:     []string{"Id", aux.NameField},
			InField:    inField,
			In:         chunk,
		})
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if id, name := rec.ID(), rec.GetString(aux.NameField); id != "" && name != "" {
				out[id] = name
			}
		}
	}
	return out, nil
}

func (o *Orchestrator) softAuxFailure(session *Session, aux *core.AuxReferenceConfig, err error) error {
	if o.cfg.StrictAux {
		return core.NewTransportError("aux reference resolution", aux.LookupType, err)
	}
	session.addError("aux reference resolution failed for %s, continuing without remap: %v", aux.LookupType, err)
	return nil
}

// writeRoots bulk-writes the prepared root records in fixed-size batches
// with partial failure allowed. Returns false only when the write
// transport proved unreachable for every batch with no record written.
func (o *Orchestrator) writeRoots(ctx context.Context, req *MigrationRequest, session *Session, roots []types.Record) bool {
	prepared := make([]types.Record, 0, len(roots))
	oldIDs := make([]string, 0, len(roots))
	for _, root := range roots {
		oldID := root.ID()
		prepared = append(prepared, o.prepareRecord(root, oldID, session))
		oldIDs = append(oldIDs, oldID)
	}

	transportFailures := 0
	batchIdx := 0
	for start := 0; start < len(prepared); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		batchIdx++

		results, err := o.write(ctx, req.Target, req.RootType, prepared[start:end])
		if err != nil {
			transportFailures++
			session.Failed += end - start
			session.addError("batch %d of %s rejected by transport: %v", batchIdx, req.RootType, err)
		} else {
			o.collectResults(session, req.RootType, oldIDs[start:end], results, func(oldID, newID string) {
				session.IDMap[oldID] = newID
			})
		}

		o.emit(ProgressEvent{
			SessionID:  session.ID,
			Phase:      session.Phase,
			EntityType: req.RootType,
			Batch:      batchIdx,
			Success:    session.Success,
			Failed:     session.Failed,
			Skipped:    session.Skipped,
		})
	}

	return len(session.IDMap) > 0 || transportFailures == 0
}

// processRelationship exports, remaps and writes the children of one
// relationship. Failures here are never fatal to the run: they are
// logged and the next relationship proceeds.
func (o *Orchestrator) processRelationship(ctx context.Context, req *MigrationRequest, session *Session, rel types.Relationship) {
	fields := o.exportFields(append(req.ChildFields[rel.ChildType], rel.ForeignKeyField))

	var children []types.Record
	for _, chunk := range chunkStrings(session.RootIDs, o.cfg.ChunkSize) {
		got, err := o.query(ctx, req.Source, &core.StructuredQuery{
			EntityType: rel.ChildType,
			Fields:     fields,
			InField:    rel.ForeignKeyField,
			In:         chunk,
		})
		if err != nil {
			session.addError("export of %s children failed: %v", rel.ChildType, err)
			return
		}
		children = append(children, got...)
	}

	session.logf(PhaseChildren, "relationship %s: exported %d child records", rel.ChildType, len(children))

	prepared := make([]types.Record, 0, len(children))
	oldIDs := make([]string, 0, len(children))
	for _, child := range children {
		oldParent := child.GetString(rel.ForeignKeyField)
		newParent, ok := session.IDMap[oldParent]
		if !ok {
			// The parent never made it to the target; writing the
			// child would dangle its reference.
			session.Skipped++
			session.logf(PhaseChildren, "skipped orphaned %s %s: parent %s was not migrated",
				rel.ChildType, child.ID(), oldParent)
			continue
		}

		oldID := child.ID()
		rec := o.prepareRecord(child, oldID, session)
		rec[rel.ForeignKeyField] = newParent
		prepared = append(prepared, rec)
		oldIDs = append(oldIDs, oldID)
	}

	batchIdx := 0
	for start := 0; start < len(prepared); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		batchIdx++

		results, err := o.write(ctx, req.Target, rel.ChildType, prepared[start:end])
		if err != nil {
			session.Failed += end - start
			session.addError("batch %d of %s rejected by transport: %v", batchIdx, rel.ChildType, err)
		} else {
			o.collectResults(session, rel.ChildType, oldIDs[start:end], results, nil)
		}

		o.emit(ProgressEvent{
			SessionID:  session.ID,
			Phase:      session.Phase,
			EntityType: rel.ChildType,
			Batch:      batchIdx,
			Success:    session.Success,
			Failed:     session.Failed,
			Skipped:    session.Skipped,
		})
	}
}

// prepareRecord strips identifier and server-managed attributes, remaps
// the auxiliary reference in place and stamps the original identifier
// into the external-reference attribute when one is configured
func (o *Orchestrator) prepareRecord(rec types.Record, oldID string, session *Session) types.Record {
	out := rec.Clone()
	for _, attr := range o.cfg.ManagedAttributes {
		delete(out, attr)
	}

	if aux := o.cfg.AuxReference; aux != nil {
		if oldAux := out.GetString(aux.Field); oldAux != "" {
			if newAux, ok := session.AuxMap[oldAux]; ok {
				out[aux.Field] = newAux
			}
		}
	}

	if o.cfg.ExternalIDField != "" && oldID != "" {
		out[o.cfg.ExternalIDField] = oldID
	}
	return out
}

// collectResults folds per-record write outcomes into the session;
// onSuccess, when set, receives each old->new identifier pair. Records
// submitted without a matching outcome count as failed so success and
// failed always partition the batch.
func (o *Orchestrator) collectResults(session *Session, entityType string, oldIDs []string, results []core.SaveResult, onSuccess func(oldID, newID string)) {
	for i, res := range results {
		oldID := ""
		if i < len(oldIDs) {
			oldID = oldIDs[i]
		}

		if res.Success {
			session.Success++
			if onSuccess != nil && oldID != "" {
				onSuccess(oldID, res.ID)
			}
			continue
		}

		session.Failed++
		perr := &core.PartialWriteError{
			EntityType: entityType,
			RecordKey:  oldID,
			Remote:     strings.Join(res.Errors, "; "),
		}
		session.Errors = append(session.Errors, perr.Error())
	}

	for i := len(results); i < len(oldIDs); i++ {
		session.Failed++
		perr := &core.PartialWriteError{
			EntityType: entityType,
			RecordKey:  oldIDs[i],
			Remote:     "no write outcome returned",
		}
		session.Errors = append(session.Errors, perr.Error())
	}
}

func (o *Orchestrator) query(ctx context.Context, env *types.Environment, q *core.StructuredQuery) ([]types.Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	return o.conn.Query(callCtx, env, q)
}

func (o *Orchestrator) write(ctx context.Context, env *types.Environment, entityType string, records []types.Record) ([]core.SaveResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	return o.conn.Write(callCtx, env, entityType, records, &core.WriteOptions{
		AllOrNone:       false,
		ExternalIDField: o.cfg.ExternalIDField,
	})
}

// exportFields normalizes an export field list: Id and the auxiliary
// reference field are always included, duplicates removed, order kept
func (o *Orchestrator) exportFields(fields []string) []string {
	out := make([]string, 0, len(fields)+2)
	seen := make(map[string]struct{}, len(fields)+2)

	add := func(field string) {
		if field == "" {
			return
		}
		if _, ok := seen[field]; ok {
			return
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}

	add("Id")
	for _, f := range fields {
		add(f)
	}
	if aux := o.cfg.AuxReference; aux != nil {
		add(aux.Field)
	}
	return out
}

func chunkStrings(values []string, size int) [][]string {
	if size <= 0 {
		size = 200
	}
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

func distinctValues(records []types.Record, field string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		v := rec.GetString(field)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
