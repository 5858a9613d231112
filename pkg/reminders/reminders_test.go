package reminders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
)

var now = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.EnsureServiceTypes(db); err != nil {
		t.Fatal(err)
	}

	d := New(database.NewStore(db), time.UTC)
	d.Now = func() time.Time { return now }
	return d
}

func TestRunOnce_LeadTimeAndIdempotence(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()
	db := d.Store.DB

	var oil database.ServiceType
	db.Where("name = ?", "Oil Change").First(&oil)
	driver := database.Driver{FirstName: "Ana", LastName: "Silva", Email: "ana@example.com"}
	db.Create(&driver)

	db.Create(&database.Maintenance{VehicleID: 1, ServiceTypeID: oil.ID, StartTime: now.Add(30 * time.Minute)})
	db.Create(&database.Maintenance{VehicleID: 1, ServiceTypeID: oil.ID, StartTime: now.Add(3 * time.Hour)})
	db.Create(&database.Maintenance{VehicleID: 2, ServiceTypeID: oil.ID, StartTime: now.Add(20 * time.Minute)})
	db.Create(&database.DriverVehicleAssignment{DriverID: driver.ID, VehicleID: 1, StartDate: now.Add(45 * time.Minute), EndDate: now.Add(2 * time.Hour)})

	all := database.NotificationPreference{Email: "ops@example.com", LeadMinutes: 60, Maintenance: true, Assignment: true}
	van1 := database.NotificationPreference{Email: "van1@example.com", VehicleID: 1, LeadMinutes: 240, Maintenance: true}
	if err := d.Store.CreatePreference(ctx, &all); err != nil {
		t.Fatal(err)
	}
	if err := d.Store.CreatePreference(ctx, &van1); err != nil {
		t.Fatal(err)
	}

	n, err := d.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	// ops: two maintenances and one assignment within an hour
	// van1: both vehicle 1 maintenances within four hours
	if n != 5 {
		t.Errorf("Expected 5 notifications, got %d", n)
	}

	n, err = d.RunOnce(ctx)
	if err != nil || n != 0 {
		t.Errorf("Expected second run to write nothing, got %d %v", n, err)
	}

	list, _ := d.Store.ListNotifications(ctx, "ops@example.com", 0)
	found := false
	for _, notif := range list {
		if strings.HasPrefix(notif.Message, "Assignment: Ana Silva on vehicle 1 starts at 2025-06-02 08:45") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected assignment reminder for Ana Silva, got %+v", list)
	}
}

func TestRunOnce_NoPreferences(t *testing.T) {
	d := newDispatcher(t)
	n, err := d.RunOnce(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Expected nothing to do, got %d %v", n, err)
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	d := newDispatcher(t)
	if _, err := d.Start(context.Background(), "not a schedule"); err == nil {
		t.Errorf("Expected invalid cron spec to fail")
	}

	c, err := d.Start(context.Background(), "*/15 * * * *")
	if err != nil {
		t.Fatalf("Expected valid spec, got %v", err)
	}
	<-c.Stop().Done()
}
