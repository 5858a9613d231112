// Package client talks to the fleet scheduler REST API. It implements the
// calendar source and the assignment backend used by the console.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is a 409 from the server
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// Client is an HTTP client for the fleet scheduler API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. A nil httpClient gets one with timeout.
func New(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &payload)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return resp, nil
}

// getJSON decodes a 2xx body into out
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &decodeError{path: path, err: err}
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError is a 2xx response whose body was not the expected JSON
type decodeError struct {
	path string
	err  error
}

func (e *decodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.path, e.err) }

func (e *decodeError) Unwrap() error { return e.err }

// isDecodeError reports a body that arrived but did not decode. Errors from
// the request itself are transport failures, even when they wrap io.EOF.
func isDecodeError(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}

func idPath(format string, id uint) string {
	return fmt.Sprintf(format, strconv.FormatUint(uint64(id), 10))
}

// FetchMaintenances implements calendar.Source. A body that does not decode
// or has no data field yields calendar.ErrNoData.
func (c *Client) FetchMaintenances(ctx context.Context, page, pageSize int, vehicleID uint) (*models.MaintenancePage, error) {
	q := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	if vehicleID != 0 {
		q.Set("vehicle_id", strconv.FormatUint(uint64(vehicleID), 10))
	}

	var out models.MaintenancePage
	if err := c.getJSON(ctx, "/api/maintenances", q, &out); err != nil {
		if isDecodeError(err) {
			return nil, calendar.ErrNoData
		}
		return nil, err
	}
	if out.Data == nil {
		return nil, calendar.ErrNoData
	}
	return &out, nil
}

// FetchVehicleAssignments implements calendar.Source. A body that is not a
// list yields calendar.ErrNoData.
func (c *Client) FetchVehicleAssignments(ctx context.Context, vehicleID uint) ([]models.AssignmentRecord, error) {
	var out []models.AssignmentRecord
	if err := c.getJSON(ctx, idPath("/api/vehicles/%s/assignments", vehicleID), nil, &out); err != nil {
		if isDecodeError(err) {
			return nil, calendar.ErrNoData
		}
		return nil, err
	}
	if out == nil {
		return nil, calendar.ErrNoData
	}
	return out, nil
}

// CreateDriverVehicleAssignment implements interaction.Backend
func (c *Client) CreateDriverVehicleAssignment(ctx context.Context, in models.CreateAssignmentInput) (*models.CreateAssignmentResponse, error) {
	var out models.CreateAssignmentResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/driver-vehicle-assignments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDriverAssignment implements interaction.Backend
func (c *Client) DeleteDriverAssignment(ctx context.Context, assignmentID uint) (*models.DeleteResponse, error) {
	var out models.DeleteResponse
	if err := c.sendJSON(ctx, http.MethodDelete, idPath("/api/driver-vehicle-assignments/%s", assignmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMaintenance submits the maintenance dialog
func (c *Client) CreateMaintenance(ctx context.Context, in models.CreateMaintenanceInput) (*models.MaintenanceRecord, error) {
	var out struct {
		Status string                   `json:"status"`
		Data   models.MaintenanceRecord `json:"data"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/maintenances", in, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListDrivers returns one page of the driver table
func (c *Client) ListDrivers(ctx context.Context, page, pageSize int, search string) (*models.DriverPage, error) {
	q := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	if search != "" {
		q.Set("search", search)
	}
	var out models.DriverPage
	if err := c.getJSON(ctx, "/api/drivers", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DriverSuggestions lists drivers free for a slot on the vehicle
func (c *Client) DriverSuggestions(ctx context.Context, vehicleID uint, start, end time.Time) (*models.SuggestionResponse, error) {
	q := url.Values{
		"start": {calendar.FormatISO(start)},
		"end":   {calendar.FormatISO(end)},
	}
	var out models.SuggestionResponse
	if err := c.getJSON(ctx, idPath("/api/vehicles/%s/driver-suggestions", vehicleID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Features returns which event categories may be created
func (c *Client) Features(ctx context.Context) (models.Features, error) {
	var out models.Features
	err := c.getJSON(ctx, "/api/features", nil, &out)
	return out, err
}

// ListVehicles returns every vehicle
func (c *Client) ListVehicles(ctx context.Context) ([]models.VehicleRow, error) {
	var out []models.VehicleRow
	err := c.getJSON(ctx, "/api/vehicles", nil, &out)
	return out, err
}

// GetVehicle returns one vehicle
func (c *Client) GetVehicle(ctx context.Context, id uint) (models.VehicleRow, error) {
	var out models.VehicleRow
	err := c.getJSON(ctx, idPath("/api/vehicles/%s", id), nil, &out)
	return out, err
}

// ServiceType is a maintenance service type as listed by the API
type ServiceType struct {
	ID                     uint   `json:"id"`
	Name                   string `json:"name"`
	DefaultDurationMinutes int    `json:"default_duration_minutes"`
}

// ListServiceTypes returns the maintenance service types
func (c *Client) ListServiceTypes(ctx context.Context) ([]ServiceType, error) {
	var out []ServiceType
	err := c.getJSON(ctx, "/api/service-types", nil, &out)
	return out, err
}

// DownloadICS copies the iCalendar export of a vehicle to w
func (c *Client) DownloadICS(ctx context.Context, vehicleID uint, w io.Writer) error {
	resp, err := c.do(ctx, http.MethodGet, idPath("/api/vehicles/%s/calendar.ics", vehicleID), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}
