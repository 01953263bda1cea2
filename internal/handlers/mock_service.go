package handlers

import (
	"context"
	"net/http"

	"marketsync/internal/models"
	"marketsync/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockJobs struct {
	jobs   []models.JobView
	getJob models.JobView
	getErr error
	addID  string
	addErr error

	triggerErr  error
	scheduleErr error
	toggleErr   error

	lastGetID       string
	lastTriggerID   string
	lastOverride    *models.RunArgs
	lastScheduleID  string
	lastInterval    int
	lastToggleID    string
	lastToggleValue bool
	lastAddType     models.JobType
}

func (m *mockJobs) List() []models.JobView { return m.jobs }
func (m *mockJobs) Get(jobID string) (models.JobView, error) {
	m.lastGetID = jobID
	return m.getJob, m.getErr
}
func (m *mockJobs) Add(jobType models.JobType, intervalMinutes int, description string, enabled bool) (string, error) {
	m.lastAddType = jobType
	m.lastInterval = intervalMinutes
	return m.addID, m.addErr
}
func (m *mockJobs) TriggerNow(jobID string, override *models.RunArgs) error {
	m.lastTriggerID = jobID
	m.lastOverride = override
	return m.triggerErr
}
func (m *mockJobs) UpdateSchedule(jobID string, intervalMinutes int) error {
	m.lastScheduleID = jobID
	m.lastInterval = intervalMinutes
	return m.scheduleErr
}
func (m *mockJobs) Toggle(jobID string, enabled bool) error {
	m.lastToggleID = jobID
	m.lastToggleValue = enabled
	return m.toggleErr
}

type mockLogs struct {
	entries    []models.LogEntry
	listErr    error
	stats      models.LogStats
	statsErr   error
	deleted    int64
	cleanupErr error

	lastFilter  models.LogFilter
	lastStatsID string
	lastDays    int
}

func (m *mockLogs) List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error) {
	m.lastFilter = f
	return m.entries, m.listErr
}
func (m *mockLogs) Recent(ctx context.Context, jobID string, limit int) ([]models.LogEntry, error) {
	return m.entries, m.listErr
}
func (m *mockLogs) Stats(ctx context.Context, jobID string, days int) (models.LogStats, error) {
	m.lastStatsID = jobID
	m.lastDays = days
	return m.stats, m.statsErr
}
func (m *mockLogs) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	m.lastDays = olderThanDays
	return m.deleted, m.cleanupErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
