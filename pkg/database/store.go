package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/scheduler"
)

// Store wraps the queries behind the REST API. It also serves as the
// calendar.Source for server-side calendar views.
type Store struct {
	DB *gorm.DB
	// MaxDriverHours caps the hours a driver may be assigned per week, 0
	// means unlimited.
	MaxDriverHours float64
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Paginate clamps a page request to page >= 1 and 1..500 rows
func Paginate(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 500 {
		pageSize = 500
	}
	return page, pageSize
}

// ListVehicles returns every vehicle ordered by id
func (s *Store) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	err := s.DB.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// GetVehicle returns one vehicle or ErrNotFound
func (s *Store) GetVehicle(ctx context.Context, id uint) (*Vehicle, error) {
	var v Vehicle
	if err := s.DB.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &v, nil
}

// ListDrivers returns one page of drivers whose name or email matches search
func (s *Store) ListDrivers(ctx context.Context, page, pageSize int, search string) ([]Driver, int64, error) {
	page, pageSize = Paginate(page, pageSize)

	q := s.DB.WithContext(ctx).Model(&Driver{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Driver
	err := q.Order("last_name, first_name, id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&out).Error
	return out, total, err
}

// ListMaintenances returns one page of maintenance windows, optionally for a
// single vehicle
func (s *Store) ListMaintenances(ctx context.Context, page, pageSize int, vehicleID uint) ([]Maintenance, int64, error) {
	page, pageSize = Paginate(page, pageSize)

	q := s.DB.WithContext(ctx).Model(&Maintenance{})
	if vehicleID != 0 {
		q = q.Where("vehicle_id = ?", vehicleID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Maintenance
	err := q.Preload("ServiceType").Order("start_time, id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&out).Error
	return out, total, err
}

// CreateMaintenance inserts a maintenance window after checking its vehicle
// and service type exist
func (s *Store) CreateMaintenance(ctx context.Context, m *Maintenance) error {
	if m.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrValidation)
	}
	if m.EndTime != nil && m.EndTime.Before(m.StartTime) {
		return fmt.Errorf("%w: end time before start time", ErrValidation)
	}
	normalizeMaintenance(m)

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkMaintenanceRefs(tx, m.VehicleID, m.ServiceTypeID); err != nil {
			return err
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Preload("ServiceType").First(m, m.ID).Error
	})
}

// CreateMaintenancePlan inserts one maintenance window per range, all
// sharing a generated plan reference
func (s *Store) CreateMaintenancePlan(ctx context.Context, vehicleID, serviceTypeID uint, windows []calendar.Range, notes string) (string, []Maintenance, error) {
	if len(windows) == 0 {
		return "", nil, fmt.Errorf("%w: plan produced no windows", ErrValidation)
	}
	ref := uuid.NewString()
	rows := make([]Maintenance, 0, len(windows))
	for _, w := range windows {
		end := w.End
		rows = append(rows, Maintenance{
			VehicleID:     vehicleID,
			ServiceTypeID: serviceTypeID,
			StartTime:     w.Start,
			EndTime:       &end,
			Notes:         notes,
			PlanRef:       ref,
		})
	}
	for i := range rows {
		normalizeMaintenance(&rows[i])
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkMaintenanceRefs(tx, vehicleID, serviceTypeID); err != nil {
			return err
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		var st ServiceType
		if err := tx.First(&st, serviceTypeID).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].ServiceType = st
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return ref, rows, nil
}

func (s *Store) checkMaintenanceRefs(tx *gorm.DB, vehicleID, serviceTypeID uint) error {
	var count int64
	if err := tx.Model(&Vehicle{}).Where("id = ?", vehicleID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("vehicle %d: %w", vehicleID, ErrNotFound)
	}
	if err := tx.Model(&ServiceType{}).Where("id = ?", serviceTypeID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: unknown service type %d", ErrValidation, serviceTypeID)
	}
	return nil
}

func normalizeMaintenance(m *Maintenance) {
	m.StartTime = m.StartTime.UTC()
	if m.EndTime != nil {
		t := m.EndTime.UTC()
		m.EndTime = &t
	}
	if m.RepairEta != nil {
		t := m.RepairEta.UTC()
		m.RepairEta = &t
	}
}

// GetServiceType returns one service type or ErrNotFound
func (s *Store) GetServiceType(ctx context.Context, id uint) (*ServiceType, error) {
	var st ServiceType
	if err := s.DB.WithContext(ctx).First(&st, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &st, nil
}

// DeleteMaintenance removes one maintenance window
func (s *Store) DeleteMaintenance(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&Maintenance{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListServiceTypes returns every service type ordered by name
func (s *Store) ListServiceTypes(ctx context.Context) ([]ServiceType, error) {
	var out []ServiceType
	err := s.DB.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

// VehicleAssignments returns all assignments of a vehicle with their drivers
func (s *Store) VehicleAssignments(ctx context.Context, vehicleID uint) ([]DriverVehicleAssignment, error) {
	var out []DriverVehicleAssignment
	err := s.DB.WithContext(ctx).Preload("Driver").
		Where("vehicle_id = ?", vehicleID).
		Order("start_date, id").Find(&out).Error
	return out, err
}

// CreateAssignment inserts an assignment unless it conflicts with existing
// ones. On conflict the reasons are returned together with ErrConflict.
func (s *Store) CreateAssignment(ctx context.Context, a *DriverVehicleAssignment) ([]models.ConflictReason, error) {
	a.StartDate = a.StartDate.UTC()
	a.EndDate = a.EndDate.UTC()

	var conflicts []models.ConflictReason
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		driver, err := s.checkAssignment(tx, *a, &conflicts)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return ErrConflict
		}
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		a.Driver = driver
		return nil
	})
	return conflicts, err
}

// CheckAssignment reports the conflicts the assignment would have without
// storing it
func (s *Store) CheckAssignment(ctx context.Context, a DriverVehicleAssignment) ([]models.ConflictReason, error) {
	a.StartDate = a.StartDate.UTC()
	a.EndDate = a.EndDate.UTC()

	var conflicts []models.ConflictReason
	_, err := s.checkAssignment(s.DB.WithContext(ctx), a, &conflicts)
	return conflicts, err
}

func (s *Store) checkAssignment(tx *gorm.DB, a DriverVehicleAssignment, conflicts *[]models.ConflictReason) (Driver, error) {
	var driver Driver
	if err := tx.First(&driver, a.DriverID).Error; err != nil {
		return driver, fmt.Errorf("driver %d: %w", a.DriverID, wrapNotFound(err))
	}
	var vehicle Vehicle
	if err := tx.First(&vehicle, a.VehicleID).Error; err != nil {
		return driver, fmt.Errorf("vehicle %d: %w", a.VehicleID, wrapNotFound(err))
	}

	candidate := scheduler.Booking{ID: a.ID, DriverID: a.DriverID, VehicleID: a.VehicleID, Start: a.StartDate, End: a.EndDate}
	sched, err := s.loadScheduler(tx, candidate.Start, "driver_id = ? OR vehicle_id = ?", a.DriverID, a.VehicleID)
	if err != nil {
		return driver, err
	}
	if _, ok := sched.Drivers[driver.ID]; !ok {
		sched.Drivers[driver.ID] = &scheduler.Driver{ID: driver.ID, MaxHours: s.MaxDriverHours}
	}
	if err := trackOverlaps(tx, sched, candidate.Start, candidate.End, "driver_id = ? OR vehicle_id = ?", a.DriverID, a.VehicleID); err != nil {
		return driver, err
	}
	*conflicts = sched.Check(candidate)
	return driver, nil
}

// SuggestDrivers ranks drivers free for the window, least booked this week first
func (s *Store) SuggestDrivers(ctx context.Context, vehicleID uint, start, end time.Time) (models.SuggestionResponse, error) {
	var resp models.SuggestionResponse
	tx := s.DB.WithContext(ctx)

	var drivers []Driver
	if err := tx.Order("id").Find(&drivers).Error; err != nil {
		return resp, err
	}
	sched, err := s.loadScheduler(tx, start.UTC(), "")
	if err != nil {
		return resp, err
	}
	for _, d := range drivers {
		if _, ok := sched.Drivers[d.ID]; !ok {
			sched.Drivers[d.ID] = &scheduler.Driver{ID: d.ID, MaxHours: s.MaxDriverHours}
		}
		sched.Drivers[d.ID].Name = strings.TrimSpace(d.FirstName + " " + d.LastName)
	}
	if err := trackOverlaps(tx, sched, start.UTC(), end.UTC(), ""); err != nil {
		return resp, err
	}

	resp.Drivers, resp.Reasons = sched.Suggest(scheduler.Booking{VehicleID: vehicleID, Start: start.UTC(), End: end.UTC()})
	if resp.Drivers == nil {
		resp.Drivers = []models.DriverSuggestion{}
	}
	resp.FairnessScore = sched.CalculateFairnessScore()
	return resp, nil
}

// loadScheduler builds a scheduler over the bookings in the week around at,
// filtered by the optional where clause
func (s *Store) loadScheduler(tx *gorm.DB, at time.Time, where string, args ...any) (*scheduler.Scheduler, error) {
	weekStart := calendar.StartOfWeek(at, time.Monday, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	q := tx.Model(&DriverVehicleAssignment{}).Where("start_date < ? AND end_date > ?", weekEnd, weekStart)
	if where != "" {
		q = q.Where(where, args...)
	}
	var rows []DriverVehicleAssignment
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	drivers := make(map[uint]*scheduler.Driver)
	bookings := make(map[uint]*scheduler.Booking, len(rows))
	for _, r := range rows {
		bookings[r.ID] = &scheduler.Booking{ID: r.ID, DriverID: r.DriverID, VehicleID: r.VehicleID, Start: r.StartDate, End: r.EndDate}
		if _, ok := drivers[r.DriverID]; !ok {
			drivers[r.DriverID] = &scheduler.Driver{ID: r.DriverID, MaxHours: s.MaxDriverHours}
		}
	}
	return scheduler.NewScheduler(drivers, bookings), nil
}

// trackOverlaps adds every booking overlapping [start, end) to sched. The week
// loaded for hours can miss bookings when the window crosses into the next week.
func trackOverlaps(tx *gorm.DB, sched *scheduler.Scheduler, start, end time.Time, where string, args ...any) error {
	q := tx.Model(&DriverVehicleAssignment{}).Where("start_date < ? AND end_date > ?", end, start)
	if where != "" {
		q = q.Where(where, args...)
	}
	var rows []DriverVehicleAssignment
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		sched.Track(&scheduler.Booking{ID: r.ID, DriverID: r.DriverID, VehicleID: r.VehicleID, Start: r.StartDate, End: r.EndDate})
	}
	return nil
}

// DeleteAssignment removes one assignment
func (s *Store) DeleteAssignment(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&DriverVehicleAssignment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FetchMaintenances implements calendar.Source
func (s *Store) FetchMaintenances(ctx context.Context, page, pageSize int, vehicleID uint) (*models.MaintenancePage, error) {
	rows, total, err := s.ListMaintenances(ctx, page, pageSize, vehicleID)
	if err != nil {
		return nil, err
	}
	page, pageSize = Paginate(page, pageSize)
	out := &models.MaintenancePage{Data: make([]models.MaintenanceRecord, 0, len(rows)), Total: total, Page: page, PageSize: pageSize}
	for _, m := range rows {
		out.Data = append(out.Data, MaintenanceRecord(m))
	}
	return out, nil
}

// FetchVehicleAssignments implements calendar.Source
func (s *Store) FetchVehicleAssignments(ctx context.Context, vehicleID uint) ([]models.AssignmentRecord, error) {
	rows, err := s.VehicleAssignments(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	out := make([]models.AssignmentRecord, 0, len(rows))
	for _, a := range rows {
		out = append(out, AssignmentRecord(a))
	}
	return out, nil
}

// CreatePreference stores a notification preference
func (s *Store) CreatePreference(ctx context.Context, p *NotificationPreference) error {
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !p.Maintenance && !p.Assignment {
		return fmt.Errorf("%w: subscribe to at least one category", ErrValidation)
	}
	if p.LeadMinutes <= 0 {
		p.LeadMinutes = 60
	}
	return s.DB.WithContext(ctx).Create(p).Error
}

// ListPreferences returns preferences, optionally for one email
func (s *Store) ListPreferences(ctx context.Context, email string) ([]NotificationPreference, error) {
	q := s.DB.WithContext(ctx).Order("id")
	if email != "" {
		q = q.Where("email = ?", email)
	}
	var out []NotificationPreference
	err := q.Find(&out).Error
	return out, err
}

// RecordNotification inserts a notification once per preference and event.
// It reports whether a new row was written.
func (s *Store) RecordNotification(ctx context.Context, n *Notification) (bool, error) {
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "preference_id"}, {Name: "event_key"}},
		DoNothing: true,
	}).Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListNotifications returns the latest notifications, optionally for one email
func (s *Store) ListNotifications(ctx context.Context, email string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.DB.WithContext(ctx).Order("created_at desc, id desc").Limit(limit)
	if email != "" {
		q = q.Where("email = ?", email)
	}
	var out []Notification
	err := q.Find(&out).Error
	return out, err
}

// MaintenancesBetween returns maintenance windows starting in [from, to)
func (s *Store) MaintenancesBetween(ctx context.Context, from, to time.Time) ([]Maintenance, error) {
	var out []Maintenance
	err := s.DB.WithContext(ctx).Preload("ServiceType").
		Where("start_time >= ? AND start_time < ?", from.UTC(), to.UTC()).
		Order("start_time, id").Find(&out).Error
	return out, err
}

// AssignmentsBetween returns assignments starting in [from, to)
func (s *Store) AssignmentsBetween(ctx context.Context, from, to time.Time) ([]DriverVehicleAssignment, error) {
	var out []DriverVehicleAssignment
	err := s.DB.WithContext(ctx).Preload("Driver").
		Where("start_date >= ? AND start_date < ?", from.UTC(), to.UTC()).
		Order("start_date, id").Find(&out).Error
	return out, err
}
