package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Scheduler materializes due recurring definitions into ledger entries. It
// is pull-based: callers decide when to sweep and for which target date.
type Scheduler struct {
	db          DB
	idGenerator IDGenerator
	timeSource  TimeSource

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewScheduler creates a new Scheduler with default ID generator and time source
func NewScheduler(db DB) *Scheduler {
	return NewSchedulerWithDeps(db, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewSchedulerWithDeps creates a new Scheduler with custom dependencies for testing
func NewSchedulerWithDeps(db DB, idGen IDGenerator, timeSource TimeSource) *Scheduler {
	return &Scheduler{
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSource,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing work on one definition. Concurrent
// sweeps touching different definitions proceed independently.
func (s *Scheduler) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// ProcessDue evaluates every active definition against targetDate
// (YYYY-MM-DD, empty means today) and materializes one entry per due
// definition. A failing definition is logged and skipped so it cannot stall
// the sweep. Returns the newly created entries in definition-iteration order.
func (s *Scheduler) ProcessDue(targetDate string) ([]*Entry, error) {
	if targetDate == "" {
		targetDate = s.timeSource.Now().Format(DateLayout)
	}
	target, err := ParseDate(targetDate)
	if err != nil {
		return nil, fmt.Errorf("parsing target date: %w", err)
	}

	defs, err := s.db.ListActiveRecurring()
	if err != nil {
		return nil, fmt.Errorf("listing active recurring definitions: %w", err)
	}

	created := make([]*Entry, 0)
	for _, def := range defs {
		entry, err := s.fireIfDue(def.ID, targetDate, target)
		if err != nil {
			slog.Error("Failed to process recurring definition",
				"definition_id", def.ID,
				"name", def.Name,
				"error", err,
			)
			continue
		}
		if entry != nil {
			created = append(created, entry)
		}
	}

	return created, nil
}

// fireIfDue materializes one entry for the definition if it is due. The
// definition is re-read inside its lock so a concurrent sweep's marker write
// is observed before the due check.
func (s *Scheduler) fireIfDue(id, targetDate string, target time.Time) (*Entry, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	def, err := s.db.GetRecurring(id)
	if err != nil {
		return nil, err
	}
	if !def.IsActive || !IsDue(def, target) {
		return nil, nil
	}

	return s.materialize(def, targetDate)
}

// ProcessOne materializes an entry for a single definition regardless of
// whether it is due. The definition must exist and be active; otherwise
// ErrNotFound is returned.
func (s *Scheduler) ProcessOne(id string, targetDate string) (*Entry, error) {
	if targetDate == "" {
		targetDate = s.timeSource.Now().Format(DateLayout)
	}
	if _, err := ParseDate(targetDate); err != nil {
		return nil, fmt.Errorf("parsing target date: %w", err)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	def, err := s.db.GetRecurring(id)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, fmt.Errorf("recurring definition %s is inactive: %w", id, ErrNotFound)
	}

	return s.materialize(def, targetDate)
}

// materialize creates the ledger entry and then advances the definition's
// last-processed marker. Writing the entry first means a failed marker write
// leaves the definition looking unfired, so the next sweep may duplicate the
// occurrence rather than silently lose it (at-least-once).
func (s *Scheduler) materialize(def *RecurringDefinition, targetDate string) (*Entry, error) {
	now := s.timeSource.Now()

	description := def.Description
	if description == "" {
		description = def.Category
	}

	entry := &Entry{
		ID:          s.idGenerator.Generate(),
		Date:        targetDate,
		Amount:      def.Amount,
		Category:    def.Category,
		Description: description,
		Type:        def.Type,
		CreatedBy:   def.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveEntry(entry); err != nil {
		return nil, fmt.Errorf("creating entry: %w", err)
	}

	if err := s.db.UpdateRecurringLastProcessed(def.ID, targetDate); err != nil {
		slog.Error("Entry created but last-processed marker not updated; the next sweep may duplicate this occurrence",
			"definition_id", def.ID,
			"entry_id", entry.ID,
			"date", targetDate,
			"error", err,
		)
		return entry, nil
	}

	return entry, nil
}
