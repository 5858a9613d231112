package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// MaintenancePageSize is how many maintenance records one refresh reads.
const MaintenancePageSize = 100

// Source supplies the raw records for one vehicle. Implementations may return
// ErrNoData (or a nil page/slice) when the backend answered without data;
// any other error is treated as a transport failure.
type Source interface {
	FetchMaintenances(ctx context.Context, page, pageSize int, vehicleID uint) (*models.MaintenancePage, error)
	FetchVehicleAssignments(ctx context.Context, vehicleID uint) ([]models.AssignmentRecord, error)
}

// Engine owns the authoritative event collection shown by a calendar view.
type Engine struct {
	source Source

	mu      sync.RWMutex
	events  []Event
	issued  uint64
	applied uint64
}

// NewEngine creates an engine reading from src.
func NewEngine(src Source) *Engine {
	return &Engine{source: src}
}

// Seed adds externally provided events, typically of a category the engine
// does not own. Owned categories seeded here are replaced by the next
// successful refresh.
func (e *Engine) Seed(events ...Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := make([]Event, 0, len(e.events)+len(events))
	next = append(next, e.events...)
	next = append(next, events...)
	SortEvents(next)
	e.events = next
}

// Events returns a copy of the current collection.
func (e *Engine) Events() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// Refresh fetches maintenance windows and assignments for vehicleID
// concurrently and replaces those two categories in one step. A zero
// vehicleID is a no-op. Missing data for a category is logged and leaves that
// category stale; only transport errors are returned.
//
// Each call takes a generation number. If a newer refresh has already been
// applied when this one finishes, its result is dropped.
func (e *Engine) Refresh(ctx context.Context, vehicleID uint) error {
	if vehicleID == 0 {
		return nil
	}

	e.mu.Lock()
	e.issued++
	gen := e.issued
	e.mu.Unlock()

	var (
		page        *models.MaintenancePage
		assignments []models.AssignmentRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.source.FetchMaintenances(gctx, 1, MaintenancePageSize, vehicleID)
		if err != nil && !errors.Is(err, ErrNoData) {
			return fmt.Errorf("fetch maintenances: %w", err)
		}
		page = p
		return nil
	})
	g.Go(func() error {
		a, err := e.source.FetchVehicleAssignments(gctx, vehicleID)
		if err != nil && !errors.Is(err, ErrNoData) {
			return fmt.Errorf("fetch assignments: %w", err)
		}
		assignments = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fresh := make(map[Category][]Event, 2)

	if evs, err := NormalizeMaintenance(page); err != nil {
		logging.Error("maintenance data missing, keeping previous events", err, "vehicle_id", vehicleID)
	} else {
		if dropped := len(page.Data) - len(evs); dropped > 0 {
			logging.Info("dropped unparseable maintenance records", "vehicle_id", vehicleID, "count", dropped)
		}
		fresh[CategoryMaintenance] = evs
	}

	if evs, err := NormalizeAssignments(assignments); err != nil {
		logging.Error("assignment data missing, keeping previous events", err, "vehicle_id", vehicleID)
	} else {
		if dropped := len(assignments) - len(evs); dropped > 0 {
			logging.Info("dropped unparseable assignment records", "vehicle_id", vehicleID, "count", dropped)
		}
		fresh[CategoryAssignment] = evs
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen < e.applied {
		logging.Debug("discarding stale refresh", "vehicle_id", vehicleID, "generation", gen, "applied", e.applied)
		return nil
	}
	e.applied = gen
	e.events = Merge(e.events, fresh)
	return nil
}
