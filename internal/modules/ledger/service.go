// Package ledger is the core module of the reconciliation pipeline: it
// accepts raw trade activity from batch imports, webhooks and the live
// agent feed, normalizes it into trade legs, persists them, and serves
// reconciled unified trades and summaries.
package ledger

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/tally/internal/dedup"
	"github.com/alevras/tally/internal/domain"
	"github.com/alevras/tally/internal/events"
	"github.com/alevras/tally/internal/importer"
	"github.com/alevras/tally/internal/ingest"
	"github.com/alevras/tally/internal/reconcile"
	"github.com/alevras/tally/internal/utils"
)

// snapshotMaxAge bounds how stale a cached reconciliation may be before
// read endpoints recompute it. Writes refresh the snapshot eagerly, so
// this only matters after a crash between insert and refresh.
const snapshotMaxAge = 10 * time.Minute

// RepositoryInterface defines the interface for leg persistence
type RepositoryInterface interface {
	// InsertLegs persists a batch of legs, skipping already stored ids
	InsertLegs(legs []domain.TradeLeg) (int, error)

	// GetByAgent retrieves all legs recorded for an agent
	GetByAgent(agentID string) ([]domain.TradeLeg, error)

	// ListAgents returns the distinct agent ids present in the ledger
	ListAgents() ([]string, error)

	// KnownIDs returns the set of leg ids already stored for an agent
	KnownIDs(agentID string) (map[string]struct{}, error)
}

// Compile-time check that Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)

// SnapshotStore caches reconciled trade sets between reconciliation passes
type SnapshotStore interface {
	Store(agentID string, trades []domain.UnifiedTrade) error
	Get(agentID string, maxAge time.Duration) ([]domain.UnifiedTrade, bool, error)
}

// ImportReport is the outcome of one batch import, returned to the caller
// so nothing is silently dropped: every input record is accounted for as
// imported, duplicate, or an error with its line and reasons.
type ImportReport struct {
	Dialect     string                 `json:"dialect"`
	Total       int                    `json:"total"`
	Imported    int                    `json:"imported"`
	Duplicates  int                    `json:"duplicates"`
	ParseErrors int                    `json:"parse_errors"`
	Errors      []importer.RecordError `json:"errors"`
}

// Service coordinates ingestion, persistence and reconciliation
type Service struct {
	log       zerolog.Logger
	repo      RepositoryInterface
	snapshots SnapshotStore
	bus       *events.Bus
	solRate   float64 // default SOL conversion rate; per-request overrides win
}

// NewService creates a new ledger service
func NewService(
	repo RepositoryInterface,
	snapshots SnapshotStore,
	bus *events.Bus,
	solRate float64,
	log zerolog.Logger,
) *Service {
	return &Service{
		log:       log.With().Str("service", "ledger").Logger(),
		repo:      repo,
		snapshots: snapshots,
		bus:       bus,
		solRate:   solRate,
	}
}

// ImportBatch runs the full batch pipeline on raw CSV or JSON text:
// parse, validate, normalize, deduplicate, persist, refresh the snapshot.
// An empty dialect hint auto-detects from the input shape.
func (s *Service) ImportBatch(text string, hint importer.Dialect, agentID string) (*ImportReport, error) {
	defer utils.OperationTimer("import_batch", s.log)()

	parsed, err := importer.Parse(text, hint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse import: %w", err)
	}

	validation := importer.Validate(parsed.Records)

	report := &ImportReport{
		Dialect:     string(parsed.Dialect),
		Total:       len(parsed.Records) + parsed.ErrorCount,
		ParseErrors: parsed.ErrorCount,
		Errors:      validation.Errors,
	}

	knownMap, err := s.repo.KnownIDs(agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load known leg ids: %w", err)
	}
	known := dedup.KnownIDs(knownMap)

	opts := ingest.Options{
		AgentID:      agentID,
		SourceFormat: parsed.Dialect.SourceFormat(),
	}

	legs := make([]domain.TradeLeg, 0, len(validation.Valid))
	for _, record := range validation.Valid {
		leg := ingest.Normalize(record.Fields, opts)
		if err := leg.Validate(); err != nil {
			// Normalization could not produce a well-formed leg even though
			// the record passed field-level validation, e.g. coercion loss.
			report.Errors = append(report.Errors, importer.RecordError{
				Line:    record.Line,
				Reasons: []string{err.Error()},
			})
			continue
		}
		legs = append(legs, leg)
	}

	fresh, duplicates := dedup.Split(legs, known)
	report.Duplicates = len(duplicates)

	inserted, err := s.repo.InsertLegs(fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to persist import batch: %w", err)
	}
	report.Imported = inserted

	if inserted > 0 {
		if err := s.refreshSnapshot(agentID); err != nil {
			s.log.Warn().Err(err).Str("agent_id", agentID).Msg("Snapshot refresh failed after import")
		}
	}

	s.log.Info().
		Str("agent_id", agentID).
		Str("dialect", report.Dialect).
		Int("total", report.Total).
		Int("imported", report.Imported).
		Int("duplicates", report.Duplicates).
		Int("errors", len(report.Errors)+report.ParseErrors).
		Msg("Batch imported")

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.BatchImported,
			Data: events.BatchImportedData{
				AgentID:    agentID,
				Dialect:    report.Dialect,
				Imported:   report.Imported,
				Duplicates: report.Duplicates,
				Errors:     len(report.Errors) + report.ParseErrors,
			},
		})
	}

	return report, nil
}

// IngestWebhook accepts one webhook trade notification, normalizes it into
// a pending leg and persists it. Returns the stored leg and whether it was
// new (false means a duplicate delivery was skipped).
func (s *Service) IngestWebhook(raw ingest.RawRecord, agentID string) (*domain.TradeLeg, bool, error) {
	trade, err := ingest.ParseWebhook(raw)
	if err != nil {
		return nil, false, err
	}

	leg := trade.Leg(agentID, time.Now())
	return s.ingestLeg(leg)
}

// IngestStreamEvent accepts one live feed event. Non-trade events are
// ignored (nil leg, no error); trade events are normalized and persisted.
func (s *Service) IngestStreamEvent(kind string, raw ingest.RawRecord, agentID string) (*domain.TradeLeg, bool, error) {
	if !ingest.IsTradeEvent(kind) {
		return nil, false, nil
	}

	leg := ingest.Normalize(raw, ingest.Options{
		AgentID:      agentID,
		SourceFormat: ingest.SourceStream,
	})
	if err := leg.Validate(); err != nil {
		return nil, false, fmt.Errorf("stream event rejected: %w", err)
	}
	return s.ingestLeg(leg)
}

func (s *Service) ingestLeg(leg domain.TradeLeg) (*domain.TradeLeg, bool, error) {
	inserted, err := s.repo.InsertLegs([]domain.TradeLeg{leg})
	if err != nil {
		return nil, false, fmt.Errorf("failed to persist leg: %w", err)
	}
	if inserted == 0 {
		s.log.Debug().Str("leg_id", leg.ID).Msg("Duplicate leg delivery skipped")
		return &leg, false, nil
	}

	if err := s.refreshSnapshot(leg.AgentID); err != nil {
		s.log.Warn().Err(err).Str("agent_id", leg.AgentID).Msg("Snapshot refresh failed after ingest")
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.LegIngested,
			Data: events.LegIngestedData{
				LegID:   leg.ID,
				AgentID: leg.AgentID,
				Source:  leg.SourceFormat,
			},
		})
	}

	return &leg, true, nil
}

// Trades returns the reconciled trade set for an agent. A zero rate uses
// the service default and may be served from the snapshot cache; an
// explicit rate override always recomputes.
func (s *Service) Trades(agentID string, rate float64) ([]domain.UnifiedTrade, error) {
	if rate == 0 || rate == s.solRate {
		if s.snapshots != nil {
			trades, ok, err := s.snapshots.Get(agentID, snapshotMaxAge)
			if err != nil {
				s.log.Warn().Err(err).Str("agent_id", agentID).Msg("Snapshot read failed")
			} else if ok {
				return trades, nil
			}
		}
		rate = s.solRate
	}
	return s.Reconcile(agentID, rate)
}

// Reconcile recomputes the unified trade set for an agent from its full
// leg history. A zero rate means the service default; when the default
// rate is used, the result also refreshes the snapshot cache.
func (s *Service) Reconcile(agentID string, rate float64) ([]domain.UnifiedTrade, error) {
	defer utils.OperationTimer("reconcile", s.log)()

	if rate == 0 {
		rate = s.solRate
	}
	legs, err := s.repo.GetByAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load legs for reconciliation: %w", err)
	}

	trades := reconcile.Unify(legs, reconcile.Options{SolRate: rate})

	if rate == s.solRate && s.snapshots != nil {
		if err := s.snapshots.Store(agentID, trades); err != nil {
			s.log.Warn().Err(err).Str("agent_id", agentID).Msg("Snapshot store failed")
		}
	}

	return trades, nil
}

// Summary aggregates the reconciled trade set for an agent
func (s *Service) Summary(agentID string, rate float64) (domain.TradeSummary, error) {
	trades, err := s.Trades(agentID, rate)
	if err != nil {
		return domain.TradeSummary{}, err
	}
	return reconcile.Summarize(trades), nil
}

// Agents returns the distinct agent ids present in the ledger
func (s *Service) Agents() ([]string, error) {
	return s.repo.ListAgents()
}

// DefaultSolRate returns the configured default conversion rate
func (s *Service) DefaultSolRate() float64 {
	return s.solRate
}

func (s *Service) refreshSnapshot(agentID string) error {
	_, err := s.Reconcile(agentID, s.solRate)
	return err
}
