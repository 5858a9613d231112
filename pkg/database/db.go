package database

import (
	"errors"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Vehicle represents the vehicles table
type Vehicle struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	PlateNumber string    `gorm:"uniqueIndex;not null" json:"plate_number"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Status      string    `gorm:"default:active" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Driver represents the drivers table
type Driver struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FirstName     string    `gorm:"not null" json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `gorm:"uniqueIndex" json:"email"`
	Phone         string    `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	Picture       string    `json:"picture"`
	CreatedAt     time.Time `json:"created_at"`
}

// ServiceType represents the service_types table
type ServiceType struct {
	ID                     uint   `gorm:"primaryKey" json:"id"`
	Name                   string `gorm:"uniqueIndex;not null" json:"name"`
	DefaultDurationMinutes int    `gorm:"default:60" json:"default_duration_minutes"`
}

// Maintenance represents the maintenances table
type Maintenance struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	VehicleID     uint        `gorm:"index;not null" json:"vehicle_id"`
	ServiceTypeID uint        `gorm:"not null" json:"service_type_id"`
	ServiceType   ServiceType `json:"service_type"`
	StartTime     time.Time   `gorm:"index;not null" json:"start_time"`
	EndTime       *time.Time  `json:"end_time"`
	RepairEta     *time.Time  `json:"repair_eta"`
	Notes         string      `json:"notes"`
	PlanRef       string      `gorm:"index" json:"plan_ref,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// DriverVehicleAssignment represents the driver_vehicle_assignments table
type DriverVehicleAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DriverID  uint      `gorm:"index;not null" json:"driver_id"`
	Driver    Driver    `json:"driver"`
	VehicleID uint      `gorm:"index;not null" json:"vehicle_id"`
	StartDate time.Time `gorm:"index;not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPreference represents the notification_preferences table. A
// zero VehicleID subscribes to every vehicle.
type NotificationPreference struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"index;not null" json:"email"`
	VehicleID   uint      `gorm:"index" json:"vehicle_id"`
	LeadMinutes int       `gorm:"default:60" json:"lead_minutes"`
	Maintenance bool      `json:"maintenance"`
	Assignment  bool      `json:"assignment"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification represents the notifications table
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PreferenceID uint      `gorm:"uniqueIndex:idx_pref_event;not null" json:"preference_id"`
	EventKey     string    `gorm:"uniqueIndex:idx_pref_event;not null" json:"event_key"`
	Email        string    `gorm:"index;not null" json:"email"`
	Message      string    `json:"message"`
	EventStart   time.Time `json:"event_start"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open connects to Postgres when databaseURL is set and to SQLite at
// dataPath otherwise, then migrates the schema
func Open(databaseURL, dataPath string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if databaseURL != "" {
		gcfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  databaseURL,
			PreferSimpleProtocol: true,
		}), gcfg)
	} else {
		if dataPath == "" {
			dataPath = "fleet.db"
		}
		db, err = gorm.Open(sqlite.Open(dataPath), gcfg)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&Vehicle{}, &Driver{}, &ServiceType{}, &Maintenance{},
		&DriverVehicleAssignment{}, &NotificationPreference{}, &Notification{},
	); err != nil {
		return nil, err
	}
	return db, nil
}

// InitDB opens the database or exits the process
func InitDB(databaseURL, dataPath string) *gorm.DB {
	db, err := Open(databaseURL, dataPath)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return db
}
