package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/reportportal/internal/audit"
	"github.com/nikhilbhutani/reportportal/internal/auth"
	"github.com/nikhilbhutani/reportportal/internal/models"
	"github.com/nikhilbhutani/reportportal/internal/notify"
	"github.com/nikhilbhutani/reportportal/internal/powerbi"
	"github.com/nikhilbhutani/reportportal/internal/queue"
	"github.com/nikhilbhutani/reportportal/internal/settings"
	"github.com/nikhilbhutani/reportportal/internal/user"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, f user.Filter) ([]models.User, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) ListActive(ctx context.Context) ([]models.UserSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserSummary), args.Error(1)
}

func (m *MockUserService) Stats(ctx context.Context) (user.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(user.Stats), args.Error(1)
}

func (m *MockUserService) Activity(ctx context.Context, page int) (*user.ActivityPage, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.ActivityPage), args.Error(1)
}

func (m *MockUserService) ClearActivity(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, in user.CreateInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, actorID, id uuid.UUID, in user.UpdateInput) (*models.User, bool, error) {
	args := m.Called(ctx, actorID, id, in)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) ToggleStatus(ctx context.Context, actorID, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, actorID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) BulkUpdateStatus(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID, active bool) (user.BulkResult, error) {
	args := m.Called(ctx, actorID, ids, active)
	return args.Get(0).(user.BulkResult), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) RecordLogin(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserService) RecordLogout(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserService) MarkClicked(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) All(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockSettings) Strings(ctx context.Context, key string) ([]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSettings) SetMany(ctx context.Context, values map[string]settings.Value) error {
	return m.Called(ctx, values).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyReportUpdated(ctx context.Context, userIDs []uuid.UUID) (notify.DispatchResult, error) {
	args := m.Called(ctx, userIDs)
	return args.Get(0).(notify.DispatchResult), args.Error(1)
}

func (m *MockNotifier) SendTest(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

type MockQueueMonitor struct {
	mock.Mock
}

func (m *MockQueueMonitor) Status(ctx context.Context) (queue.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(queue.Status), args.Error(1)
}

type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Log(ctx context.Context, entry audit.LogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditLog) List(ctx context.Context, q audit.AuditQuery) ([]models.AuditLog, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditLog), args.Error(1)
}

type MockEmbedService struct {
	mock.Mock
}

func (m *MockEmbedService) GetEmbedConfig(ctx context.Context, viewer powerbi.Viewer, opts powerbi.EmbedOptions) (*powerbi.EmbedConfig, error) {
	args := m.Called(ctx, viewer, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*powerbi.EmbedConfig), args.Error(1)
}

func (m *MockEmbedService) GetReportPages(ctx context.Context) []powerbi.ReportPage {
	return m.Called(ctx).Get(0).([]powerbi.ReportPage)
}

func (m *MockEmbedService) CheckAPIStatus(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueToken(u *models.User) (string, time.Time, error) {
	args := m.Called(u)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokenIssuer) Revoke(ctx context.Context, claims *auth.Claims) error {
	return m.Called(ctx, claims).Error(0)
}

func createTestUser(master bool) *models.User {
	return &models.User{
		ID:       uuid.New(),
		Name:     "Alice",
		Email:    "alice@example.com",
		IsMaster: master,
		IsActive: true,
	}
}

func newRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, u *models.User) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), u))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
