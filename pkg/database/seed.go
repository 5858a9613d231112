package database

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// DefaultServiceTypes are created on every start if missing
var DefaultServiceTypes = []ServiceType{
	{Name: "Oil Change", DefaultDurationMinutes: 60},
	{Name: "Tire Rotation", DefaultDurationMinutes: 45},
	{Name: "Brake Service", DefaultDurationMinutes: 120},
	{Name: "Battery Service", DefaultDurationMinutes: 60},
	{Name: "Inspection", DefaultDurationMinutes: 90},
}

// EnsureServiceTypes inserts the default service types that do not exist yet
func EnsureServiceTypes(db *gorm.DB) error {
	for _, st := range DefaultServiceTypes {
		row := st
		if err := db.Where(ServiceType{Name: st.Name}).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// Seed fills an empty database with demo vehicles, drivers, maintenance
// windows and assignments around now. A database that already has vehicles
// is left alone.
func Seed(db *gorm.DB, now time.Time) error {
	if err := EnsureServiceTypes(db); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&Vehicle{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		vehicles := []Vehicle{
			{Name: "Van 1", PlateNumber: "FLT-101", Make: "Ford", Model: "Transit", Year: 2021},
			{Name: "Van 2", PlateNumber: "FLT-102", Make: "Mercedes", Model: "Sprinter", Year: 2022},
			{Name: "Truck 1", PlateNumber: "FLT-201", Make: "Volvo", Model: "FH", Year: 2019},
		}
		if err := tx.Create(&vehicles).Error; err != nil {
			return err
		}

		drivers := []Driver{
			{FirstName: "Ana", LastName: "Silva", Email: "ana.silva@example.com", Phone: "555-0101", LicenseNumber: "D-1001"},
			{FirstName: "Ben", LastName: "Okafor", Email: "ben.okafor@example.com", Phone: "555-0102", LicenseNumber: "D-1002"},
			{FirstName: "Chen", LastName: "Wei", Email: "chen.wei@example.com", Phone: "555-0103", LicenseNumber: "D-1003"},
			{FirstName: "Dana", LastName: "", Email: "dana@example.com", Phone: "555-0104", LicenseNumber: "D-1004"},
			{FirstName: "Eli", LastName: "Novak", Email: "eli.novak@example.com", Phone: "555-0105", LicenseNumber: "D-1005"},
		}
		if err := tx.Create(&drivers).Error; err != nil {
			return err
		}

		var types []ServiceType
		if err := tx.Order("id").Find(&types).Error; err != nil {
			return err
		}

		day := now.UTC().Truncate(24 * time.Hour)
		at := func(days, hour int) time.Time {
			return day.AddDate(0, 0, days).Add(time.Duration(hour) * time.Hour)
		}
		ptr := func(t time.Time) *time.Time { return &t }

		maints := []Maintenance{
			{VehicleID: vehicles[0].ID, ServiceTypeID: types[0].ID, StartTime: at(0, 9), EndTime: ptr(at(0, 10))},
			{VehicleID: vehicles[0].ID, ServiceTypeID: types[4].ID, StartTime: at(2, 13), RepairEta: ptr(at(2, 15)), Notes: "annual inspection"},
			{VehicleID: vehicles[1].ID, ServiceTypeID: types[2].ID, StartTime: at(1, 8), EndTime: ptr(at(1, 10))},
		}
		if err := tx.Create(&maints).Error; err != nil {
			return err
		}

		assigns := []DriverVehicleAssignment{
			{DriverID: drivers[0].ID, VehicleID: vehicles[0].ID, StartDate: at(0, 11), EndDate: at(0, 17)},
			{DriverID: drivers[1].ID, VehicleID: vehicles[0].ID, StartDate: at(1, 8), EndDate: at(1, 16)},
			{DriverID: drivers[2].ID, VehicleID: vehicles[1].ID, StartDate: at(0, 6), EndDate: at(0, 14)},
		}
		if err := tx.Create(&assigns).Error; err != nil {
			return err
		}

		log.Printf("Seeded %d vehicles, %d drivers, %d maintenances, %d assignments", len(vehicles), len(drivers), len(maints), len(assigns))
		return nil
	})
}
