package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/config"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	h       *Handler
	router  *gin.Engine
	vehicle database.Vehicle
	drivers []database.Driver
	oil     database.ServiceType
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	env := &testEnv{}
	env.vehicle = database.Vehicle{Name: "Van 1", PlateNumber: "FLT-101"}
	db.Create(&env.vehicle)
	env.drivers = []database.Driver{
		{FirstName: "Ana", LastName: "Silva", Email: "ana@example.com"},
		{FirstName: "Ben", LastName: "Okafor", Email: "ben@example.com"},
	}
	db.Create(&env.drivers)
	db.Where("name = ?", "Oil Change").First(&env.oil)

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	env.h = New(database.NewStore(db), cfg)
	env.h.Now = func() time.Time { return day.Add(8 * time.Hour) }
	env.router = NewRouter(env.h)
	return env
}

func defaultConfig() config.Config {
	return config.Config{
		Features:  config.Features{Assignment: true, Maintenance: true},
		WeekStart: time.Monday,
	}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	w := env.do(http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("Expected generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("Expected X-Request-ID abc to be echoed, got %q", got)
	}
}

func TestCreateAssignment_ThenConflict(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	input := models.CreateAssignmentInput{
		DriverID:  env.drivers[0].ID,
		VehicleID: env.vehicle.ID,
		StartDate: "2025-06-02T09:00:00.000Z",
		EndDate:   "2025-06-02T12:00:00.000Z",
	}
	w := env.do(http.MethodPost, "/api/driver-vehicle-assignments", input)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.CreateAssignmentResponse
	decode(t, w, &resp)
	if resp.Status != "success" || resp.Data.ID == 0 {
		t.Errorf("Expected success with id, got %+v", resp)
	}
	if resp.Data.Driver == nil || resp.Data.Driver.User.FirstName != "Ana" {
		t.Errorf("Expected nested driver user, got %+v", resp.Data.Driver)
	}
	if resp.Data.StartDate != input.StartDate {
		t.Errorf("Expected start %s, got %s", input.StartDate, resp.Data.StartDate)
	}

	input.DriverID = env.drivers[1].ID
	w = env.do(http.MethodPost, "/api/driver-vehicle-assignments", input)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var conflict struct {
		Conflicts []models.ConflictReason `json:"conflicts"`
	}
	decode(t, w, &conflict)
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].Kind != models.ConflictVehicleBusy {
		t.Errorf("Expected vehicle busy conflict, got %+v", conflict.Conflicts)
	}
}

func TestCreateAssignment_BadInput(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	w := env.do(http.MethodPost, "/api/driver-vehicle-assignments", models.CreateAssignmentInput{
		VehicleID: env.vehicle.ID,
		StartDate: "2025-06-02T09:00:00.000Z",
		EndDate:   "2025-06-02T12:00:00.000Z",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without driver, got %d", w.Code)
	}

	w = env.do(http.MethodPost, "/api/driver-vehicle-assignments", models.CreateAssignmentInput{
		DriverID:  99,
		VehicleID: env.vehicle.ID,
		StartDate: "2025-06-02T09:00:00.000Z",
		EndDate:   "2025-06-02T12:00:00.000Z",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown driver, got %d", w.Code)
	}
}

func TestCreateAssignment_FeatureDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Features.Assignment = false
	env := newTestEnv(t, cfg)

	w := env.do(http.MethodPost, "/api/driver-vehicle-assignments", models.CreateAssignmentInput{})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}

	w = env.do(http.MethodGet, "/api/features", nil)
	var f models.Features
	decode(t, w, &f)
	if f.Assignment || !f.Maintenance {
		t.Errorf("Expected only maintenance enabled, got %+v", f)
	}
}

func TestDeleteAssignment(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	a := database.DriverVehicleAssignment{DriverID: env.drivers[0].ID, VehicleID: env.vehicle.ID, StartDate: day, EndDate: day.Add(time.Hour)}
	env.h.Store.DB.Create(&a)

	w := env.do(http.MethodDelete, "/api/driver-vehicle-assignments/"+itoa(a.ID), nil)
	var resp models.DeleteResponse
	decode(t, w, &resp)
	if w.Code != http.StatusOK || !resp.Success {
		t.Errorf("Expected success, got %d %+v", w.Code, resp)
	}

	w = env.do(http.MethodDelete, "/api/driver-vehicle-assignments/"+itoa(a.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}
}

func TestMaintenance_CreateAndList(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	w := env.do(http.MethodPost, "/api/maintenances", models.CreateMaintenanceInput{
		Vehicle:       env.vehicle.ID,
		StartTime:     "2025-06-02T09:00:00Z",
		EndTime:       "2025-06-02T10:30:00Z",
		ServiceTypeID: env.oil.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/maintenances?page=1&page_size=100&vehicle_id="+itoa(env.vehicle.ID), nil)
	var page models.MaintenancePage
	decode(t, w, &page)
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("Expected one record, got %+v", page)
	}
	if page.Data[0].ServiceTypeName != "Oil Change" || page.Data[0].EndTime == nil || *page.Data[0].EndTime != "2025-06-02T10:30:00.000Z" {
		t.Errorf("Unexpected record %+v", page.Data[0])
	}

	w = env.do(http.MethodPost, "/api/maintenances", models.CreateMaintenanceInput{
		Vehicle:       env.vehicle.ID,
		StartTime:     "not a time",
		ServiceTypeID: env.oil.ID,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad start, got %d", w.Code)
	}
}

func TestMaintenancePlan(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	w := env.do(http.MethodPost, "/api/vehicles/"+itoa(env.vehicle.ID)+"/maintenance-plans", models.MaintenancePlanInput{
		ServiceTypeID: env.oil.ID,
		RRule:         "FREQ=WEEKLY;COUNT=3",
		Start:         "2025-06-02T09:00:00Z",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		PlanRef   string                     `json:"planRef"`
		Truncated bool                       `json:"truncated"`
		Data      []models.MaintenanceRecord `json:"data"`
	}
	decode(t, w, &resp)
	if resp.PlanRef == "" || len(resp.Data) != 3 || resp.Truncated {
		t.Fatalf("Expected 3 windows under one plan, got %+v", resp)
	}
	if resp.Data[2].StartTime != "2025-06-16T09:00:00.000Z" || *resp.Data[2].EndTime != "2025-06-16T10:00:00.000Z" {
		t.Errorf("Expected default 60 minute windows a week apart, got %+v", resp.Data[2])
	}

	w = env.do(http.MethodPost, "/api/vehicles/"+itoa(env.vehicle.ID)+"/maintenance-plans", models.MaintenancePlanInput{
		ServiceTypeID: env.oil.ID,
		RRule:         "FREQ=SOMETIMES",
		Start:         "2025-06-02T09:00:00Z",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad rule, got %d", w.Code)
	}
}

func TestVehicleCalendar_DayView(t *testing.T) {
	cfg := defaultConfig()
	cfg.Blackouts = []config.Blackout{{Title: "Depot closed", Start: day.Add(20 * time.Hour), End: day.Add(23 * time.Hour)}}
	env := newTestEnv(t, cfg)

	end := day.Add(10 * time.Hour)
	env.h.Store.DB.Create(&database.Maintenance{VehicleID: env.vehicle.ID, ServiceTypeID: env.oil.ID, StartTime: day.Add(9 * time.Hour), EndTime: &end})
	env.h.Store.DB.Create(&database.DriverVehicleAssignment{DriverID: env.drivers[0].ID, VehicleID: env.vehicle.ID, StartDate: day.Add(11 * time.Hour), EndDate: day.Add(14 * time.Hour)})

	w := env.do(http.MethodGet, "/api/vehicles/"+itoa(env.vehicle.ID)+"/calendar?view=day&date=2025-06-02", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Date  string `json:"date"`
		Slots []struct {
			Label  string `json:"label"`
			Events []struct {
				Title    string `json:"title"`
				Category string `json:"category"`
			} `json:"events"`
		} `json:"slots"`
	}
	decode(t, w, &resp)
	if resp.Date != "2025-06-02" || len(resp.Slots) != 24 {
		t.Fatalf("Expected 24 slots for 2025-06-02, got %s %d", resp.Date, len(resp.Slots))
	}
	if len(resp.Slots[9].Events) != 1 || resp.Slots[9].Events[0].Title != "Maintenance: Oil Change" {
		t.Errorf("Expected maintenance at 09:00, got %+v", resp.Slots[9])
	}
	if len(resp.Slots[11].Events) != 1 || resp.Slots[11].Events[0].Title != "Assignment: Ana Silva" {
		t.Errorf("Expected assignment at 11:00, got %+v", resp.Slots[11])
	}
	if len(resp.Slots[20].Events) != 1 || resp.Slots[20].Events[0].Category != "blackout" {
		t.Errorf("Expected blackout at 20:00, got %+v", resp.Slots[20])
	}

	w = env.do(http.MethodGet, "/api/vehicles/"+itoa(env.vehicle.ID)+"/calendar?tab=assignment", nil)
	var all struct {
		Events []struct {
			Category string `json:"category"`
		} `json:"events"`
	}
	decode(t, w, &all)
	if len(all.Events) != 1 || all.Events[0].Category != "assignment" {
		t.Errorf("Expected only the assignment on the assignment tab, got %+v", all.Events)
	}

	if w := env.do(http.MethodGet, "/api/vehicles/999/calendar", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown vehicle, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/vehicles/"+itoa(env.vehicle.ID)+"/calendar?view=month", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown view, got %d", w.Code)
	}
}

func TestVehicleCalendarICS(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	env.h.Store.DB.Create(&database.DriverVehicleAssignment{DriverID: env.drivers[1].ID, VehicleID: env.vehicle.ID, StartDate: day.Add(11 * time.Hour), EndDate: day.Add(14 * time.Hour)})

	w := env.do(http.MethodGet, "/api/vehicles/"+itoa(env.vehicle.ID)+"/calendar.ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Expected text/calendar, got %s", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "SUMMARY:Assignment: Ben Okafor") {
		t.Errorf("Expected calendar with the assignment, got %s", body)
	}
}

func TestListDrivers(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	w := env.do(http.MethodGet, "/api/drivers?page=1&page_size=1&search=sil", nil)
	var page models.DriverPage
	decode(t, w, &page)
	if page.Total != 1 || len(page.Data) != 1 || page.Data[0].LastName != "Silva" {
		t.Errorf("Expected Silva only, got %+v", page)
	}
}

func TestListDrivers_ClampsPaging(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	cases := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"page=0&page_size=0", 1, 10},
		{"page=-3&page_size=-5", 1, 10},
		{"page=1&page_size=5000", 1, 500},
	}
	for _, tc := range cases {
		w := env.do(http.MethodGet, "/api/drivers?"+tc.query, nil)
		var page models.DriverPage
		decode(t, w, &page)
		if page.Page != tc.page || page.PageSize != tc.pageSize {
			t.Errorf("%s: Expected page %d size %d, got %d %d", tc.query, tc.page, tc.pageSize, page.Page, page.PageSize)
		}
		if int64(len(page.Data)) != page.Total {
			t.Errorf("%s: Expected every driver on one page, got %d of %d", tc.query, len(page.Data), page.Total)
		}
	}
}

func TestValidateAssignment(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	env.h.Store.DB.Create(&database.DriverVehicleAssignment{DriverID: env.drivers[0].ID, VehicleID: env.vehicle.ID, StartDate: day.Add(9 * time.Hour), EndDate: day.Add(12 * time.Hour)})

	var resp struct {
		Valid     bool                    `json:"valid"`
		Conflicts []models.ConflictReason `json:"conflicts"`
	}
	w := env.do(http.MethodPost, "/api/validate/assignment", models.CreateAssignmentInput{
		DriverID:  env.drivers[0].ID,
		VehicleID: env.vehicle.ID + 1,
		StartDate: "2025-06-02T10:00:00Z",
		EndDate:   "2025-06-02T11:00:00Z",
	})
	decode(t, w, &resp)
	if resp.Valid {
		t.Errorf("Expected unknown vehicle to be invalid")
	}

	w = env.do(http.MethodPost, "/api/validate/assignment", models.CreateAssignmentInput{
		DriverID:  env.drivers[1].ID,
		VehicleID: env.vehicle.ID,
		StartDate: "2025-06-02T10:00:00Z",
		EndDate:   "2025-06-02T11:00:00Z",
	})
	resp.Valid, resp.Conflicts = true, nil
	decode(t, w, &resp)
	if resp.Valid || len(resp.Conflicts) != 1 {
		t.Errorf("Expected vehicle busy, got %+v", resp)
	}

	w = env.do(http.MethodPost, "/api/validate/assignment", models.CreateAssignmentInput{
		DriverID:  env.drivers[1].ID,
		VehicleID: env.vehicle.ID,
		StartDate: "2025-06-02T12:00:00Z",
		EndDate:   "2025-06-02T13:00:00Z",
	})
	resp.Valid, resp.Conflicts = false, nil
	decode(t, w, &resp)
	if !resp.Valid {
		t.Errorf("Expected free slot to be valid, got %s", w.Body.String())
	}

	var count int64
	env.h.Store.DB.Model(&database.DriverVehicleAssignment{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected validation not to store anything, got %d rows", count)
	}
}

func TestImportAssignmentsCSV(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	csvBody := "driver_id,vehicle_id,start,end\n" +
		itoa(env.drivers[0].ID) + "," + itoa(env.vehicle.ID) + ",2025-06-02T09:00:00Z,2025-06-02T12:00:00Z\n" +
		itoa(env.drivers[1].ID) + "," + itoa(env.vehicle.ID) + ",2025-06-02T10:00:00Z,2025-06-02T11:00:00Z\n" +
		"0," + itoa(env.vehicle.ID) + ",2025-06-02T13:00:00Z,2025-06-02T14:00:00Z\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("assignments_file", "assignments.csv")
	fw.Write([]byte(csvBody))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/driver-vehicle-assignments/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Created  int `json:"created"`
		Rejected []struct {
			Row int `json:"row"`
		} `json:"rejected"`
		CSV string `json:"csv"`
	}
	decode(t, w, &resp)
	if resp.Created != 1 || len(resp.Rejected) != 2 {
		t.Fatalf("Expected 1 created and 2 rejected, got %+v", resp)
	}
	if resp.Rejected[0].Row != 3 || resp.Rejected[1].Row != 4 {
		t.Errorf("Expected rows 3 and 4 rejected, got %+v", resp.Rejected)
	}
	if !strings.Contains(resp.CSV, "Ana Silva") {
		t.Errorf("Expected export to name the driver, got %q", resp.CSV)
	}
}

func TestNotificationPreferences(t *testing.T) {
	env := newTestEnv(t, defaultConfig())

	w := env.do(http.MethodPost, "/api/notification-preferences", gin.H{"email": "ops@example.com", "maintenance": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = env.do(http.MethodPost, "/api/notification-preferences", gin.H{"email": "ops@example.com"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without categories, got %d", w.Code)
	}

	w = env.do(http.MethodGet, "/api/notification-preferences?email=ops@example.com", nil)
	var resp struct {
		Preferences []database.NotificationPreference `json:"preferences"`
	}
	decode(t, w, &resp)
	if len(resp.Preferences) != 1 || resp.Preferences[0].LeadMinutes != 60 {
		t.Errorf("Expected one preference with default lead, got %+v", resp.Preferences)
	}
}

func TestFleetUsage(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	env.h.Store.DB.Create(&database.DriverVehicleAssignment{DriverID: env.drivers[0].ID, VehicleID: env.vehicle.ID, StartDate: day.Add(9 * time.Hour), EndDate: day.Add(13 * time.Hour)})
	env.h.Store.DB.Create(&database.DriverVehicleAssignment{DriverID: env.drivers[1].ID, VehicleID: env.vehicle.ID, StartDate: day.Add(14 * time.Hour), EndDate: day.Add(18 * time.Hour)})

	w := env.do(http.MethodGet, "/api/usage?date=2025-06-04", nil)
	var resp struct {
		WeekStart     string             `json:"week_start"`
		DriverHours   map[string]float64 `json:"driver_hours"`
		FairnessScore float64            `json:"fairness_score"`
	}
	decode(t, w, &resp)
	if resp.WeekStart != "2025-06-02" {
		t.Errorf("Expected week starting 2025-06-02, got %s", resp.WeekStart)
	}
	if resp.DriverHours[itoa(env.drivers[0].ID)] != 4.0 {
		t.Errorf("Expected 4 hours for driver %d, got %+v", env.drivers[0].ID, resp.DriverHours)
	}
	if resp.FairnessScore != 100.0 {
		t.Errorf("Expected equal hours to be perfectly fair, got %f", resp.FairnessScore)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
