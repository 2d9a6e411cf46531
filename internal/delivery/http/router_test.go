package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"puppychop-api/config"
	"puppychop-api/internal/delivery/http/handler"
	"puppychop-api/internal/delivery/http/middleware"
	"puppychop-api/internal/domain/entity"
	"puppychop-api/internal/domain/validation"
	"puppychop-api/internal/repository"
	"puppychop-api/internal/service"
	"puppychop-api/internal/usecase"
	"puppychop-api/pkg/jwt"
	"puppychop-api/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testStaffKey = "front-desk-key"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&entity.Appointment{}, &entity.AuditLog{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	hash, err := bcrypt.GenerateFromPassword([]byte(testStaffKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}

	loc := time.FixedZone("CLT", -3*60*60)
	now := time.Date(2030, 5, 1, 9, 0, 0, 0, loc)
	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute})
	customValidator := validator.NewValidator()
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()
	auditService := service.NewAuditService(log, auditLogRepo)

	notifier := service.NewMemoryChangeNotifier()
	t.Cleanup(func() { notifier.Close() })

	appointmentUsecase := usecase.NewAppointmentUsecase(
		db, log, appointmentRepo, auditService, notifier, service.NewMemorySubmissionGuard(),
		validation.NewAppointmentValidator(func() time.Time { return now }), loc, true,
	)

	router := NewRouter(
		handler.NewAppointmentHandler(appointmentUsecase, customValidator),
		handler.NewCatalogHandler(),
		handler.NewAuthHandler(usecase.NewAuthUsecase(db, log, auditService, jwtService, string(hash)), customValidator),
		handler.NewAuditLogHandler(usecase.NewAuditLogUsecase(db, log, auditLogRepo)),
		middleware.NewAuthMiddleware(jwtService),
		middleware.NewCORSMiddleware(),
	)
	return router.Setup()
}

func appointmentBody() map[string]interface{} {
	return map[string]interface{}{
		"owner_name":   "María González",
		"phone":        "+56987654321",
		"email":        "maria@test.cl",
		"pet_name":     "Luna",
		"breed":        "Golden Retriever",
		"age":          "5",
		"service_type": "CONSULTA",
		"reason":       "Control de rutina anual",
		"date":         "2030-05-02",
		"time":         "10:30",
		"veterinarian": "DR_MARTINEZ",
		"priority":     "ALTA",
	}
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

type appointmentData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Confirmed bool   `json:"confirmed"`
}

func createAppointment(t *testing.T, h http.Handler) appointmentData {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/v1/appointments", appointmentBody(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created appointmentData
	decodeEnvelope(t, rec, &created)
	return created
}

func staffToken(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/v1/auth/token", map[string]string{"api_key": testStaffKey}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("token status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	decodeEnvelope(t, rec, &token)
	return token.AccessToken
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	created := createAppointment(t, h)
	if created.ID == 0 || created.Status != "pending" {
		t.Fatalf("created = %+v", created)
	}

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%d", created.ID), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestCreateAppointmentFormErrors(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	body := appointmentBody()
	body["phone"] = "12"
	body["veterinarian"] = ""

	rec := do(t, h, http.MethodPost, "/api/v1/appointments", body, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	env := decodeEnvelope(t, rec, nil)
	var fieldErrors map[string]string
	if err := json.Unmarshal(env.Error, &fieldErrors); err != nil {
		t.Fatalf("decode field errors: %v", err)
	}
	if fieldErrors["phone"] != "Formato de teléfono inválido" {
		t.Fatalf("phone error = %q", fieldErrors["phone"])
	}
	if fieldErrors["veterinarian"] != "Debe seleccionar un veterinario" {
		t.Fatalf("veterinarian error = %q", fieldErrors["veterinarian"])
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments", nil, nil)
	var list struct {
		Total int `json:"total"`
	}
	decodeEnvelope(t, rec, &list)
	if list.Total != 0 {
		t.Fatalf("invalid form was persisted")
	}
}

func TestDuplicateSubmissionEndpoint(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	headers := map[string]string{"Idempotency-Key": "tap-1"}
	if rec := do(t, h, http.MethodPost, "/api/v1/appointments", appointmentBody(), headers); rec.Code != http.StatusCreated {
		t.Fatalf("first submit status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/appointments", appointmentBody(), headers); rec.Code != http.StatusConflict {
		t.Fatalf("second submit status = %d, want 409", rec.Code)
	}
}

func TestAppointmentNotFound(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/api/v1/appointments/999", nil},
		{http.MethodPut, "/api/v1/appointments/999", appointmentBody()},
		{http.MethodDelete, "/api/v1/appointments/999", nil},
		{http.MethodPatch, "/api/v1/appointments/999/confirm", nil},
		{http.MethodPatch, "/api/v1/appointments/999/toggle", nil},
		{http.MethodPatch, "/api/v1/appointments/999/confirmed", map[string]bool{"confirmed": true}},
		{http.MethodGet, "/api/v1/appointments/999/share", nil},
		{http.MethodGet, "/api/v1/appointments/999/notification", nil},
	}

	for _, tt := range tests {
		rec := do(t, h, tt.method, tt.path, tt.body, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tt.method, tt.path, rec.Code)
		}
	}
}

func TestConfirmationEndpoints(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	created := createAppointment(t, h)
	base := fmt.Sprintf("/api/v1/appointments/%d", created.ID)

	var got appointmentData
	decodeEnvelope(t, do(t, h, http.MethodPatch, base+"/confirm", nil, nil), &got)
	if !got.Confirmed || got.Status != "confirmed" {
		t.Fatalf("confirm = %+v", got)
	}

	decodeEnvelope(t, do(t, h, http.MethodPatch, base+"/toggle", nil, nil), &got)
	if got.Confirmed {
		t.Fatalf("toggle = %+v", got)
	}

	rec := do(t, h, http.MethodPatch, base+"/confirmed", map[string]interface{}{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing confirmed status = %d, want 400", rec.Code)
	}

	decodeEnvelope(t, do(t, h, http.MethodPatch, base+"/confirmed", map[string]bool{"confirmed": true}, nil), &got)
	if !got.Confirmed {
		t.Fatalf("set confirmed = %+v", got)
	}

	var stats struct {
		Pending   int64 `json:"pending"`
		Confirmed int64 `json:"confirmed"`
	}
	decodeEnvelope(t, do(t, h, http.MethodGet, "/api/v1/appointments/stats", nil, nil), &stats)
	if stats.Pending != 0 || stats.Confirmed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDeleteConfirmedRequiresStaff(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	created := createAppointment(t, h)
	do(t, h, http.MethodPatch, fmt.Sprintf("/api/v1/appointments/%d/confirm", created.ID), nil, nil)

	if rec := do(t, h, http.MethodDelete, "/api/v1/appointments/confirmed", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous bulk delete status = %d, want 401", rec.Code)
	}

	token := staffToken(t, h)
	rec := do(t, h, http.MethodDelete, "/api/v1/appointments/confirmed", nil, map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("staff bulk delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	decodeEnvelope(t, rec, &result)
	if result.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", result.Deleted)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/audit-logs", nil, map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("audit logs status = %d", rec.Code)
	}
}

func TestStaffTokenRejectsWrongKey(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/auth/token", map[string]string{"api_key": "not-the-key"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/audit-logs", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("audit logs without token status = %d, want 401", rec.Code)
	}
}

func TestListFilterValidation(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	createAppointment(t, h)

	if rec := do(t, h, http.MethodGet, "/api/v1/appointments?status=cancelled", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/appointments?veterinarian=DR_WHO", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad veterinarian filter = %d, want 400", rec.Code)
	}

	var list struct {
		Total int `json:"total"`
	}
	decodeEnvelope(t, do(t, h, http.MethodGet, "/api/v1/appointments?status=pending&service_type=consulta", nil, nil), &list)
	if list.Total != 1 {
		t.Fatalf("pending consulta total = %d, want 1", list.Total)
	}
	decodeEnvelope(t, do(t, h, http.MethodGet, "/api/v1/appointments?status=confirmed", nil, nil), &list)
	if list.Total != 0 {
		t.Fatalf("confirmed total = %d, want 0", list.Total)
	}
}

func TestShareEndpoints(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	created := createAppointment(t, h)

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%d/share", created.ID), nil, nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("share status = %d, content type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Luna") {
		t.Fatalf("share body = %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments/share", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Total: 1 citas") {
		t.Fatalf("list share = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCatalogAndValidate(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	var catalog struct {
		ServiceTypes  []json.RawMessage `json:"service_types"`
		Priorities    []json.RawMessage `json:"priorities"`
		Veterinarians []json.RawMessage `json:"veterinarians"`
	}
	decodeEnvelope(t, do(t, h, http.MethodGet, "/api/v1/catalog", nil, nil), &catalog)
	if len(catalog.ServiceTypes) != len(entity.ServiceTypes()) || len(catalog.Priorities) != 3 || len(catalog.Veterinarians) != len(entity.Veterinarians()) {
		t.Fatalf("catalog = %d/%d/%d", len(catalog.ServiceTypes), len(catalog.Priorities), len(catalog.Veterinarians))
	}

	body := appointmentBody()
	body["age"] = "abc"
	var result struct {
		Valid  bool              `json:"valid"`
		Errors map[string]string `json:"errors"`
	}
	decodeEnvelope(t, do(t, h, http.MethodPost, "/api/v1/appointments/validate", body, nil), &result)
	if result.Valid || result.Errors["age"] != "La edad debe ser un número válido" {
		t.Fatalf("validate = %+v", result)
	}
}

func TestStreamAppointments(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/appointments/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	nextTotal := func() int {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "data: ") {
				var list struct {
					Total int `json:"total"`
				}
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &list); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				return list.Total
			}
		}
	}

	if total := nextTotal(); total != 0 {
		t.Fatalf("initial total = %d, want 0", total)
	}

	createAppointment(t, h)

	if total := nextTotal(); total != 1 {
		t.Fatalf("refreshed total = %d, want 1", total)
	}
}
