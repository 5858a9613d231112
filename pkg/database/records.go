package database

import (
	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// MaintenanceRecord converts a row to its wire form
func MaintenanceRecord(m Maintenance) models.MaintenanceRecord {
	rec := models.MaintenanceRecord{
		ID:              m.ID,
		VehicleID:       m.VehicleID,
		StartTime:       calendar.FormatISO(m.StartTime),
		ServiceTypeID:   m.ServiceTypeID,
		ServiceTypeName: m.ServiceType.Name,
		Notes:           m.Notes,
	}
	if m.EndTime != nil {
		s := calendar.FormatISO(*m.EndTime)
		rec.EndTime = &s
	}
	if m.RepairEta != nil {
		rec.RepairEta = calendar.FormatISO(*m.RepairEta)
	}
	return rec
}

// AssignmentRecord converts a row, with its preloaded driver, to its wire form
func AssignmentRecord(a DriverVehicleAssignment) models.AssignmentRecord {
	rec := models.AssignmentRecord{
		ID:        a.ID,
		DriverID:  a.DriverID,
		VehicleID: a.VehicleID,
		StartDate: calendar.FormatISO(a.StartDate),
		EndDate:   calendar.FormatISO(a.EndDate),
	}
	if a.Driver.ID != 0 {
		rec.Driver = &models.AssignmentDriver{
			ID: a.Driver.ID,
			User: &models.AssignmentUser{
				FirstName: a.Driver.FirstName,
				LastName:  a.Driver.LastName,
				Picture:   a.Driver.Picture,
			},
		}
	}
	return rec
}

func DriverRow(d Driver) models.DriverRow {
	return models.DriverRow{
		ID:        d.ID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Phone:     d.Phone,
		License:   d.LicenseNumber,
	}
}

func VehicleRow(v Vehicle) models.VehicleRow {
	return models.VehicleRow{
		ID:          v.ID,
		Name:        v.Name,
		PlateNumber: v.PlateNumber,
		Make:        v.Make,
		Model:       v.Model,
		Year:        v.Year,
		Status:      v.Status,
	}
}
