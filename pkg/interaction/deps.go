package interaction

import (
	"context"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// Feature names a creatable event category that can be switched off.
type Feature string

const (
	FeatureAssignment  Feature = "assignment"
	FeatureMaintenance Feature = "maintenance"
)

// Features answers whether a feature is available to the current operator.
type Features interface {
	IsEnabled(f Feature) bool
}

// FeatureSet is a static Features implementation.
type FeatureSet map[Feature]bool

func (s FeatureSet) IsEnabled(f Feature) bool { return s[f] }

// FeaturesFrom adapts the wire representation.
func FeaturesFrom(f models.Features) FeatureSet {
	return FeatureSet{FeatureAssignment: f.Assignment, FeatureMaintenance: f.Maintenance}
}

// Backend performs the create and delete calls for assignments.
type Backend interface {
	CreateDriverVehicleAssignment(ctx context.Context, in models.CreateAssignmentInput) (*models.CreateAssignmentResponse, error)
	DeleteDriverAssignment(ctx context.Context, assignmentID uint) (*models.DeleteResponse, error)
}

// Refresher reloads the merged calendar for a vehicle. *calendar.Engine
// satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, vehicleID uint) error
}

// Notifier shows transient success and error messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Confirmer asks a blocking yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// MaintenanceRequest is handed to the maintenance dialog. Times are ISO-8601.
type MaintenanceRequest struct {
	Vehicle   models.VehicleRow
	StartTime string
	EndTime   string
}

// MaintenanceDialog takes over maintenance creation. It must call onClose
// exactly once, after a submit or a cancel.
type MaintenanceDialog interface {
	Open(ctx context.Context, req MaintenanceRequest, onClose func())
}

// Deps bundles the collaborators of a Machine.
type Deps struct {
	Features    Features
	Backend     Backend
	Refresher   Refresher
	Notifier    Notifier
	Confirmer   Confirmer
	Maintenance MaintenanceDialog
}

// categoryFeature maps categories to the feature that gates them.
var categoryFeature = map[calendar.Category]Feature{
	calendar.CategoryAssignment:  FeatureAssignment,
	calendar.CategoryMaintenance: FeatureMaintenance,
}
