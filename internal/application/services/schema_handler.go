package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nexuscrm/forcemapper/internal/config"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"go.uber.org/zap"
)

// SchemaReport summarizes one reconciliation pass
type SchemaReport struct {
	Entities []*FieldSchemaResult
	Objects  []string
	Fields   []string
	Deploy   *ports.DeployResult
}

// Changed reports whether anything was deployed
func (r *SchemaReport) Changed() bool {
	return len(r.Objects) > 0 || len(r.Fields) > 0
}

// SchemaHandler owns the table registry and drives the schema pipeline:
// bulk describe, table registration, field reconciliation and deploy.
type SchemaHandler struct {
	logger   *zap.Logger
	unit     config.PersistenceUnit
	provider ports.ConnectionProvider
	mapper   *MemberMapper

	mu        sync.RWMutex
	entities  map[string]*schema.Entity
	order     []string
	tables    map[string]*Table
	byAPIName map[string]*Table
	describes map[string]*ports.DescribeSObjectResult
	locks     map[string]*sync.Mutex
}

// NewSchemaHandler creates a handler for one persistence unit
func NewSchemaHandler(logger *zap.Logger, unit config.PersistenceUnit, provider ports.ConnectionProvider) *SchemaHandler {
	h := &SchemaHandler{
		logger:    logger,
		unit:      unit,
		provider:  provider,
		entities:  make(map[string]*schema.Entity),
		tables:    make(map[string]*Table),
		byAPIName: make(map[string]*Table),
		describes: make(map[string]*ports.DescribeSObjectResult),
		locks:     make(map[string]*sync.Mutex),
	}
	h.mapper = NewMemberMapper(logger, unit, h)
	return h
}

// Mapper returns the member mapper bound to this handler
func (h *SchemaHandler) Mapper() *MemberMapper {
	return h.mapper
}

// Unit returns the persistence unit configuration
func (h *SchemaHandler) Unit() config.PersistenceUnit {
	return h.unit
}

// Register declares entities. Names are case-insensitive and must be unique.
func (h *SchemaHandler) Register(entities ...*schema.Entity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entities {
		key := strings.ToLower(e.Name)
		if _, dup := h.entities[key]; dup {
			return errors.NewConfigurationError(e.Name, "", "entity registered twice")
		}
		h.entities[key] = e
		h.order = append(h.order, key)
	}
	return nil
}

// LookupEntity finds a registered entity by name
func (h *SchemaHandler) LookupEntity(name string) (*schema.Entity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entities[strings.ToLower(name)]
	return e, ok
}

// Entities returns the registered entities in registration order
func (h *SchemaHandler) Entities() []*schema.Entity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*schema.Entity, 0, len(h.order))
	for _, key := range h.order {
		out = append(out, h.entities[key])
	}
	return out
}

// mappedEntities are the entities that own a table
func (h *SchemaHandler) mappedEntities() []*schema.Entity {
	var out []*schema.Entity
	for _, e := range h.Entities() {
		if e.Embeddable || e.MappedSuperclass {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ResolveTarget returns the table name of a relationship target. Targets
// that are not registered entities are read as wire names, e.g. Account.
func (h *SchemaHandler) ResolveTarget(name string) (schema.TableName, error) {
	if e, ok := h.LookupEntity(name); ok {
		return schema.NewTableName(h.unit.Namespace, e)
	}
	tn, err := schema.ParseTableName(name)
	if err != nil {
		return schema.TableName{}, err
	}
	if tn.IsCustom() && tn.Namespace == "" {
		tn.Namespace = h.unit.Namespace
	}
	return tn, nil
}

// CacheDescribeSObjects describes every entity's table in batches before any
// per-entity work starts. A "no such object" fault on a batch is swallowed;
// the affected tables fall back to single describes.
func (h *SchemaHandler) CacheDescribeSObjects(ctx context.Context, entities []*schema.Entity, conn ports.Connection) error {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entities {
		if e.Virtual || e.Embeddable || e.MappedSuperclass {
			continue
		}
		tn, err := schema.NewTableName(h.unit.Namespace, e)
		if err != nil {
			return err
		}
		wire := tn.ForceAPIName()
		key := strings.ToLower(wire)
		h.mu.RLock()
		_, cached := h.describes[key]
		h.mu.RUnlock()
		if _, dup := seen[key]; dup || cached {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, wire)
	}

	for start := 0; start < len(names); start += constants.MaxDescribeBatch {
		end := start + constants.MaxDescribeBatch
		if end > len(names) {
			end = len(names)
		}
		chunk := names[start:end]
		results, err := conn.DescribeSObjects(ctx, chunk)
		if err != nil {
			if ports.IsNoSuchObject(err) {
				h.logger.Debug("Bulk describe hit a missing object, falling back to single describes",
					zap.Strings("names", chunk), zap.Error(err))
				continue
			}
			return fmt.Errorf("failed to describe objects: %w", err)
		}
		h.mu.Lock()
		for _, r := range results {
			if r != nil {
				h.describes[strings.ToLower(r.Name)] = r
			}
		}
		h.mu.Unlock()
	}

	h.logger.Info("🔍 Cached object descriptions", zap.Int("requested", len(names)))
	return nil
}

// AddTable registers and refreshes the table of an entity. Entities that map
// to an already registered wire name share its table.
func (h *SchemaHandler) AddTable(ctx context.Context, entity *schema.Entity, conn ports.Connection) (*Table, error) {
	tn, err := schema.NewTableName(h.unit.Namespace, entity)
	if err != nil {
		return nil, err
	}
	wireKey := strings.ToLower(tn.ForceAPIName())

	h.mu.Lock()
	table, seen := h.byAPIName[wireKey]
	if !seen {
		table = NewTable(tn, h.unit.Namespace)
		h.byAPIName[wireKey] = table
	}
	h.tables[strings.ToLower(entity.Name)] = table
	describe := h.describes[wireKey]
	h.mu.Unlock()

	if seen && table.IsValid() {
		return table, nil
	}
	if err := table.Refresh(ctx, describe, conn); err != nil {
		return nil, err
	}
	return table, nil
}

// AddVirtualTable registers a table built purely from the entity declaration
func (h *SchemaHandler) AddVirtualTable(entity *schema.Entity) (*Table, error) {
	tn, err := schema.NewTableName(h.unit.Namespace, entity)
	if err != nil {
		return nil, err
	}
	table, err := NewVirtualTable(tn, entity)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.byAPIName[strings.ToLower(tn.ForceAPIName())]; ok {
		table = existing
	} else {
		h.byAPIName[strings.ToLower(tn.ForceAPIName())] = table
	}
	h.tables[strings.ToLower(entity.Name)] = table
	return table, nil
}

// GetTable returns the table registered for an entity
func (h *SchemaHandler) GetTable(entityName string) (*Table, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t, ok := h.tables[strings.ToLower(entityName)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", errors.ErrTableNotMapped, entityName)
}

// TableByForceAPIName returns a registered table by its wire name
func (h *SchemaHandler) TableByForceAPIName(name string) (*Table, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.byAPIName[strings.ToLower(name)]
	return t, ok
}

// Tables returns every registered table sorted by wire name
func (h *SchemaHandler) Tables() []*Table {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Table, 0, len(h.byAPIName))
	for _, t := range h.byAPIName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ForceAPIName() < out[j].ForceAPIName() })
	return out
}

// InvalidateTable marks a table for re-describe and drops its cached describe
func (h *SchemaHandler) InvalidateTable(wireName string) {
	key := strings.ToLower(wireName)
	h.mu.Lock()
	delete(h.describes, key)
	t, ok := h.byAPIName[key]
	h.mu.Unlock()
	if ok {
		t.Invalidate()
	}
}

func (h *SchemaHandler) entityLock(entityName string) *sync.Mutex {
	key := strings.ToLower(entityName)
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[key]
	if !ok {
		l = &sync.Mutex{}
		h.locks[key] = l
	}
	return l
}

// registerTables describes and registers the table of every mapped entity
func (h *SchemaHandler) registerTables(ctx context.Context, conn ports.Connection) ([]*schema.Entity, error) {
	entities := h.mappedEntities()
	if err := h.CacheDescribeSObjects(ctx, entities, conn); err != nil {
		return nil, err
	}
	for _, e := range entities {
		var err error
		if e.Virtual {
			_, err = h.AddVirtualTable(e)
		} else {
			_, err = h.AddTable(ctx, e, conn)
		}
		if err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// CreateSchema reconciles every registered entity with the remote store and
// deploys whatever is missing, as far as the persistence unit permits.
func (h *SchemaHandler) CreateSchema(ctx context.Context) (*SchemaReport, error) {
	return h.run(ctx, false)
}

// DeleteSchema removes the objects and custom fields of every registered
// entity that is not read-only.
func (h *SchemaHandler) DeleteSchema(ctx context.Context) (*SchemaReport, error) {
	return h.run(ctx, true)
}

func (h *SchemaHandler) run(ctx context.Context, deleteMode bool) (*SchemaReport, error) {
	conn, release, err := h.provider.Acquire(ctx)
	if err != nil {
		return nil, errors.NewTransportError("acquire connection", err)
	}
	defer release()

	entities, err := h.registerTables(ctx, conn)
	if err != nil {
		return nil, err
	}

	writer := NewSchemaWriter(h.logger, WriterOptions{
		APIVersion: h.unit.APIVersion,
		Delete:     deleteMode,
		Purge:      deleteMode && h.unit.PurgeOnDeleteSchema,
		Strict:     h.unit.DeployStrict,
		Poll: PollPolicy{
			Initial:    h.unit.PollInitial,
			Multiplier: h.unit.PollMultiplier,
			Max:        h.unit.PollMax,
		},
	})

	report := &SchemaReport{}
	for _, e := range entities {
		result, err := h.mapper.CreateFieldSchema(ctx, conn, e, writer)
		if err != nil {
			return nil, err
		}
		report.Entities = append(report.Entities, result)
	}

	for _, o := range writer.Objects() {
		report.Objects = append(report.Objects, o.FullName)
	}
	for _, f := range writer.Fields() {
		report.Fields = append(report.Fields, f.QualifiedName())
	}

	report.Deploy, err = writer.Write(ctx, conn)
	if err != nil {
		return nil, err
	}
	if !report.Changed() {
		return report, nil
	}

	// Pick up what the deploy created (or removed) and bind members to it
	for _, e := range entities {
		table, err := h.GetTable(e.Name)
		if err != nil || table.IsVirtual() {
			continue
		}
		if !table.IsValid() || deleteMode {
			h.InvalidateTable(table.ForceAPIName())
			if err := table.Refresh(ctx, nil, conn); err != nil {
				return nil, err
			}
		}
		if !deleteMode {
			h.mapper.bindColumns(e, table)
		}
	}
	return report, nil
}

// Drift reports, per entity, the fields missing remotely. Nothing is deployed.
func (h *SchemaHandler) Drift(ctx context.Context) ([]*FieldSchemaResult, error) {
	conn, release, err := h.provider.Acquire(ctx)
	if err != nil {
		return nil, errors.NewTransportError("acquire connection", err)
	}
	defer release()

	// Drop cached describes so the report reflects the current remote state
	h.mu.Lock()
	h.describes = make(map[string]*ports.DescribeSObjectResult)
	for _, t := range h.byAPIName {
		t.Invalidate()
	}
	h.mu.Unlock()

	entities, err := h.registerTables(ctx, conn)
	if err != nil {
		return nil, err
	}
	var out []*FieldSchemaResult
	for _, e := range entities {
		result, err := h.mapper.Drift(ctx, conn, e)
		if err != nil {
			return nil, err
		}
		if len(result.Missing) > 0 || result.TableMissing {
			out = append(out, result)
		}
	}
	return out, nil
}
