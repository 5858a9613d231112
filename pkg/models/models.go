package models

// MaintenanceRecord is a maintenance window as the REST API returns it
type MaintenanceRecord struct {
	ID              uint    `json:"id"`
	VehicleID       uint    `json:"vehicleId"`
	StartTime       string  `json:"startTime"`
	EndTime         *string `json:"endTime"`
	RepairEta       string  `json:"repairEta"`
	ServiceTypeID   uint    `json:"serviceTypeId,omitempty"`
	ServiceTypeName string  `json:"serviceTypeName"`
	Notes           string  `json:"notes,omitempty"`
}

// MaintenancePage is one page of maintenance records. A nil Data means the
// payload carried no data field at all.
type MaintenancePage struct {
	Data     []MaintenanceRecord `json:"data"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// AssignmentUser is the user profile nested under an assignment's driver
type AssignmentUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Picture   string `json:"picture,omitempty"`
}

// AssignmentDriver is the driver nested in an assignment record
type AssignmentDriver struct {
	ID   uint            `json:"id"`
	User *AssignmentUser `json:"user"`
}

// AssignmentRecord is a driver-vehicle assignment as the REST API returns it
type AssignmentRecord struct {
	ID        uint              `json:"id"`
	DriverID  uint              `json:"driverId"`
	VehicleID uint              `json:"vehicleId"`
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate"`
	Driver    *AssignmentDriver `json:"driver"`
}

// CreateAssignmentInput is the body of the create-assignment call
type CreateAssignmentInput struct {
	DriverID  uint   `json:"driverId"`
	VehicleID uint   `json:"vehicleId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// CreateAssignmentResponse is returned by the create-assignment call
type CreateAssignmentResponse struct {
	Status string           `json:"status"`
	Data   AssignmentRecord `json:"data"`
}

// DeleteResponse is returned by delete calls
type DeleteResponse struct {
	Success bool `json:"success"`
}

// CreateMaintenanceInput is what the maintenance creation dialog submits
type CreateMaintenanceInput struct {
	Vehicle       uint   `json:"vehicle"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	ServiceTypeID uint   `json:"service_type_id"`
	Notes         string `json:"notes,omitempty"`
}

// DriverRow is one row of the paginated driver table
type DriverRow struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	License   string `json:"licenseNumber,omitempty"`
}

// DriverPage is one page of the driver table
type DriverPage struct {
	Data     []DriverRow `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// VehicleRow describes a vehicle for listings and calendar subjects
type VehicleRow struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	PlateNumber string `json:"plateNumber"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Year        int    `json:"year,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Features reports which event categories may be created
type Features struct {
	Assignment  bool `json:"assignment"`
	Maintenance bool `json:"maintenance"`
}

// MaintenancePlanInput asks for a recurring maintenance plan to be expanded
type MaintenancePlanInput struct {
	ServiceTypeID   uint   `json:"service_type_id"`
	RRule           string `json:"rrule"`
	Start           string `json:"start"`
	Until           string `json:"until,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes,omitempty"`
}

// Conflict kinds reported when an assignment cannot be made
const (
	ConflictInvalidRange = "invalid_range"
	ConflictVehicleBusy  = "vehicle_busy"
	ConflictDriverBusy   = "driver_busy"
	ConflictMaxHours     = "max_hours"
)

// ConflictReason represents why an assignment could not be made
type ConflictReason struct {
	Kind      string `json:"kind"`
	BookingID uint   `json:"bookingId,omitempty"`
	Message   string `json:"message"`
}

// DriverSuggestion is a driver who could take a slot
type DriverSuggestion struct {
	DriverID      uint    `json:"driverId"`
	Name          string  `json:"name"`
	AssignedHours float64 `json:"assignedHours"`
}

// SuggestionResponse lists drivers for a slot
type SuggestionResponse struct {
	Drivers       []DriverSuggestion `json:"drivers"`
	Reasons       []string           `json:"reasons,omitempty"`
	FairnessScore float64            `json:"fairnessScore"`
}
