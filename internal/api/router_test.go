package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/api"
	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/memory"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/gofiber/fiber/v2"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type testServer struct {
	app        *fiber.App
	student    model.User
	supervisor model.User
	thesis     model.Thesis
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()

	store := memory.New()
	student := store.AddUser(model.User{Name: "Alice", Email: "alice@uni.test", Role: model.RoleStudent})
	supervisor := store.AddUser(model.User{Name: "Prof. Brown", Email: "brown@uni.test", Role: model.RoleSupervisor})
	thesis := store.AddThesis(model.Thesis{StudentID: student.ID, SupervisorID: supervisor.ID, Title: "Thesis"})

	logger := zap.NewNop()
	cache := service.NewMemoryCache()
	publisher := events.NopPublisher{}

	app := api.NewRouter(api.Services{
		Guidance:           service.NewGuidanceService(store.Guidance, store.Theses, cache, publisher, logger, service.GuidanceOptions{}),
		Milestones:         service.NewMilestoneService(store.Milestones, store.Theses, cache, time.Minute, publisher, logger),
		SupervisorRequests: service.NewSupervisorRequestService(store.SupervisorRequests, store.Theses, store.Users, publisher, logger),
		Users:              service.NewUserService(store.Users, store.Theses, logger),
	}, api.RouterConfig{JWTSecret: testSecret, RateLimitPerMinute: rateLimit}, logger)

	return &testServer{app: app, student: student, supervisor: supervisor, thesis: thesis}
}

func signToken(t *testing.T, user model.User) string {
	t.Helper()
	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path string, user *model.User, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+signToken(t, *user))
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

// dayAfterTomorrow время в будущем, не зависящее от текущего часа
func dayAfterTomorrow(hour, minute int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, 2)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodGet, "/v1/guidance", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "unauthorized", body["code"])

	req := httptest.NewRequest(http.MethodGet, "/v1/guidance", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuidanceFlow(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodPost, "/v1/guidance", &s.student, map[string]any{
		"supervisorId":    s.supervisor.ID,
		"requestedDate":   dayAfterTomorrow(10, 0),
		"durationMinutes": 60,
		"studentNotes":    "chapter 2",
	})
	require.Equal(t, http.StatusCreated, status, body)
	guidance := body["guidance"].(map[string]any)
	require.Equal(t, "requested", guidance["status"])
	require.ElementsMatch(t, []any{"reschedule", "cancel", "update_notes"}, body["allowedActions"])
	id := guidance["id"].(string)

	status, body = s.do(t, http.MethodGet, "/v1/guidance/pending", &s.student, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, body["canCreate"])

	status, body = s.do(t, http.MethodPost, "/v1/guidance", &s.student, map[string]any{
		"supervisorId":  s.supervisor.ID,
		"requestedDate": dayAfterTomorrow(15, 0),
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "pending_request_exists", body["code"])
	require.Equal(t, id, body["pending"].(map[string]any)["id"])

	status, body = s.do(t, http.MethodPost, "/v1/guidance/"+id+"/approve-summary", &s.supervisor, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "invalid_transition", body["code"])

	status, body = s.do(t, http.MethodPost, "/v1/guidance/"+id+"/approve", &s.student, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "forbidden", body["code"])

	status, body = s.do(t, http.MethodPost, "/v1/guidance/"+id+"/approve", &s.supervisor, map[string]any{"message": "see you"})
	require.Equal(t, http.StatusOK, status)
	guidance = body["guidance"].(map[string]any)
	require.Equal(t, "accepted", guidance["status"])
	require.NotEmpty(t, guidance["approvedDate"])

	status, body = s.do(t, http.MethodGet, "/v1/guidance/upcoming", &s.student, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["items"], 1)

	status, _ = s.do(t, http.MethodGet, "/v1/guidance/not-a-uuid", &s.student, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAvailabilityCheck(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodPost, "/v1/guidance", &s.student, map[string]any{
		"supervisorId":    s.supervisor.ID,
		"requestedDate":   dayAfterTomorrow(10, 0),
		"durationMinutes": 60,
	})
	require.Equal(t, http.StatusCreated, status, body)

	base := "/v1/supervisors/" + s.supervisor.ID.String() + "/availability"

	req := httptest.NewRequest(http.MethodGet, base+"/check?duration=60&start="+dayAfterTomorrow(9, 30).Format(time.RFC3339), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, s.student))
	req.Header.Set("X-Check-Token", "7")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var check map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&check))
	require.Equal(t, "conflict", check["status"])
	require.Equal(t, "7", check["token"])
	require.Contains(t, check["message"], "Alice")

	status, body = s.do(t, http.MethodGet, base+"/check?duration=30&start="+dayAfterTomorrow(11, 0).Format(time.RFC3339), &s.student, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "no_conflict", body["status"])

	from := dayAfterTomorrow(0, 0).Format(time.RFC3339)
	to := dayAfterTomorrow(23, 59).Format(time.RFC3339)
	status, body = s.do(t, http.MethodGet, base+"?start="+from+"&end="+to, &s.supervisor, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["busySlots"], 1)

	status, body = s.do(t, http.MethodGet, base+"?start=yesterday&end="+to, &s.supervisor, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "bad_request", body["code"])
}

func TestMilestonesEndpoints(t *testing.T) {
	s := newTestServer(t, 0)
	thesisPath := "/v1/thesis/" + s.thesis.ID.String() + "/milestones"

	status, body := s.do(t, http.MethodPost, thesisPath+"/init", &s.supervisor, nil)
	require.Equal(t, http.StatusCreated, status, body)
	milestones := body["milestones"].([]any)
	require.Len(t, milestones, len(service.DefaultMilestoneTemplates))
	firstID := milestones[0].(map[string]any)["id"].(string)

	status, body = s.do(t, http.MethodPost, "/v1/milestones/"+firstID+"/validate", &s.supervisor, map[string]any{"approved": true})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(t, http.MethodGet, thesisPath, &s.student, nil)
	require.Equal(t, http.StatusOK, status)
	progress := body["progress"].(map[string]any)
	require.EqualValues(t, 1, progress["completed"])
	require.EqualValues(t, 14, progress["percentComplete"])
	require.EqualValues(t, 2, body["next"].(map[string]any)["orderIndex"])

	status, body = s.do(t, http.MethodPost, "/v1/milestones/"+firstID+"/progress", &s.student, map[string]any{"progressPercentage": 150})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation_error", body["code"])
}

func TestMeAndTelegramBinding(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodPut, "/v1/me/telegram", &s.student, map[string]any{"telegramId": 555})
	require.Equal(t, http.StatusOK, status, body)
	require.EqualValues(t, 555, body["user"].(map[string]any)["telegram_id"])

	status, body = s.do(t, http.MethodGet, "/v1/me", &s.student, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Alice", body["user"].(map[string]any)["name"])

	status, _ = s.do(t, http.MethodDelete, "/v1/me/telegram", &s.student, nil)
	require.Equal(t, http.StatusNoContent, status)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 1)
	path := "/v1/supervisors/" + s.supervisor.ID.String() + "/availability/check?duration=30&start=" + dayAfterTomorrow(11, 0).Format(time.RFC3339)

	status, _ := s.do(t, http.MethodGet, path, &s.student, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := s.do(t, http.MethodGet, path, &s.student, nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "rate_limited", body["code"])
}
