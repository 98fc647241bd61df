package main

import (
	"expvar"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// StatisticsReport is the view of the statistics served to ops users.
type StatisticsReport struct {
	Version     string           `json:"app.version"`
	Container   bool             `json:"app.container"`
	Platform    string           `json:"app.platform"`
	GoVersion   string           `json:"go.version"`
	Called      uint64           `json:"called"`
	Started     string           `json:"started"`
	Uptime      string           `json:"uptime"`
	Maintenance MaintenanceState `json:"maintenance"`
	Status      map[int]uint64   `json:"status"`
}

// Record counts one response with the given status code.
func (s *Statistics) Record(status int) {
	s.mu.Lock()
	s.status[status]++
	s.mu.Unlock()
}

// Report builds a consistent copy of the statistics at the given time.
// The ops request being served is not accounted in the called field.
func (s *Statistics) Report(now time.Time, mode MaintenanceState) StatisticsReport {
	called := atomic.LoadUint64(&s.called)
	if called > 0 {
		called--
	}

	s.mu.RLock()
	status := make(map[int]uint64, len(s.status))
	for code, count := range s.status {
		status[code] = count
	}
	s.mu.RUnlock()

	return StatisticsReport{
		Version:     s.version,
		Container:   s.container,
		Platform:    s.platform,
		GoVersion:   s.runtime,
		Called:      called,
		Started:     s.started.Format(time.RFC1123),
		Uptime:      Uptime(s.started, now),
		Maintenance: mode,
		Status:      status,
	}
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// MaintenanceState is a point in time view of the maintenance mode.
type MaintenanceState struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
	Started string `json:"started"`
}

// Enabled reports whether public requests must be turned away.
func (m *Maintenance) Enabled() bool {
	return m.enabled.Load()
}

// Enable switches the maintenance mode on with the message shown to users.
func (m *Maintenance) Enable(message string, at time.Time) MaintenanceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = message
	m.started = at
	m.enabled.Store(true)
	return m.stateLocked()
}

// Disable switches the maintenance mode off.
func (m *Maintenance) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled.Store(false)
	m.message = ""
	m.started = time.Time{}
}

// State returns the current maintenance mode infos.
func (m *Maintenance) State() MaintenanceState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Maintenance) stateLocked() MaintenanceState {
	state := MaintenanceState{Enabled: m.enabled.Load(), Message: m.message}
	if !m.started.IsZero() {
		state.Started = m.started.Format(time.RFC1123)
	}
	return state
}

// Maintenance enables or disables the maintenance mode of the service.
// Enable : /ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
// Disable: /ops/maintenance?status=disable
func (api *APIHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.GetLoggerFromContext(r.Context())

	var err error
	switch status := r.URL.Query().Get("status"); status {
	case "enable":
		state := api.mode.Enable(r.URL.Query().Get("msg"), api.clock.Now().UTC())
		logger.Warn("maintenance mode enabled", zap.String("maintenance.message", state.Message))
		err = WriteResponse(r.Context(), w, GenericResponse(requestID, http.StatusOK, "maintenance mode enabled", state))
	case "disable":
		api.mode.Disable()
		logger.Warn("maintenance mode disabled")
		err = WriteResponse(r.Context(), w, GenericResponse(requestID, http.StatusOK, "maintenance mode disabled", api.mode.State()))
	default:
		err = WriteErrorResponse(r.Context(), w, NewAPIError(requestID, http.StatusBadRequest, "status must be enable or disable", EmptyData))
	}
	if err != nil {
		logger.Error("failed to send maintenance response", zap.Error(err))
	}
}

// writeMaintenanceNotice answers public requests while the maintenance mode is on.
func (api *APIHandler) writeMaintenanceNotice(w http.ResponseWriter, r *http.Request) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Retry-After", "120")
	errResp := NewAPIError(requestID, http.StatusServiceUnavailable, "service currently unavailable", api.mode.State())
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send maintenance notice", zap.Error(err))
	}
}

// export goroutines to be used by expvar handler.
var goroutines = expvar.NewInt("goroutines")

// GetMemStats returns memory statistics with number of goroutines in json.
func GetMemStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	goroutines.Set(int64(runtime.NumGoroutine()))
	expvar.Handler().ServeHTTP(w, r)
}

// RuntimeTask provides a handler which triggers the given runtime
// function in background and acknowledges the call right away.
func (api *APIHandler) RuntimeTask(name string, task func()) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		go task()
		resp := GenericResponse(requestID, http.StatusAccepted, "task triggered", map[string]string{"called": name})
		if err := WriteResponse(r.Context(), w, resp); err != nil {
			api.GetLoggerFromContext(r.Context()).Error("failed to send runtime task response", zap.String("task", name), zap.Error(err))
		}
	}
}

// GetStatistics provides useful details about the application to the internal ops users.
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	report := api.stats.Report(api.clock.Now(), api.mode.State())
	if err := WriteResponse(r.Context(), w, GenericResponse(requestID, http.StatusOK, "service statistics", report)); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send statistics response", zap.Error(err))
	}
}

// GetConfigs serves current in-use configurations/settings.
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := GenericResponse(requestID, http.StatusOK, "current in-use configurations", api.config)
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send settings response", zap.Error(err))
	}
}
