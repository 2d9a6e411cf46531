package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"puppychop-api/internal/delivery/dto"
	"puppychop-api/internal/domain/entity"
	"puppychop-api/internal/domain/validation"
	"puppychop-api/internal/repository"
	"puppychop-api/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	testLoc = time.FixedZone("CLT", -3*60*60)
	testNow = time.Date(2030, 5, 1, 9, 0, 0, 0, testLoc)
)

type testEnv struct {
	db       *gorm.DB
	usecase  AppointmentUsecase
	notifier service.ChangeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
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

	notifier := service.NewMemoryChangeNotifier()
	t.Cleanup(func() { notifier.Close() })

	uc := NewAppointmentUsecase(
		db,
		log,
		repository.NewAppointmentRepository(),
		service.NewAuditService(log, repository.NewAuditLogRepository()),
		notifier,
		service.NewMemorySubmissionGuard(),
		validation.NewAppointmentValidator(func() time.Time { return testNow }),
		testLoc,
		true,
	)
	return &testEnv{db: db, usecase: uc, notifier: notifier}
}

func validRequest() *dto.AppointmentRequest {
	return &dto.AppointmentRequest{
		OwnerName:    "María González",
		Phone:        "+56987654321",
		Email:        "maria@test.cl",
		PetName:      "Luna",
		Breed:        "Golden Retriever",
		Age:          "5",
		ServiceType:  "CONSULTA",
		Reason:       "Control de rutina anual",
		Date:         "2030-05-02",
		Time:         "10:30",
		Veterinarian: "DR_MARTINEZ",
		Priority:     "MEDIA",
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreateAppointment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.usecase.CreateAppointment(ctx, validRequest(), "")
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}
	if resp.ID == 0 || resp.Status != "pending" || resp.Confirmed {
		t.Fatalf("CreateAppointment() = %+v", resp)
	}
	if !resp.ReminderEnabled {
		t.Fatalf("reminder should default to enabled")
	}
	if resp.Date != "2030-05-02" || resp.DateDisplay != "02/05/2030" {
		t.Fatalf("dates = %s / %s", resp.Date, resp.DateDisplay)
	}
	if resp.ServiceType.Name != "Consulta General" || resp.Veterinarian.Specialty != "Medicina General" {
		t.Fatalf("display values = %+v / %+v", resp.ServiceType, resp.Veterinarian)
	}

	got, err := env.usecase.GetAppointment(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetAppointment() error = %v", err)
	}
	if got.OwnerName != "María González" || got.PetAge != 5 || got.Time != "10:30" || got.Reason != "Control de rutina anual" {
		t.Fatalf("GetAppointment() = %+v", got)
	}

	if n := countRows(t, env.db, &entity.AuditLog{}); n != 1 {
		t.Fatalf("audit rows = %d, want 1", n)
	}
}

func TestCreateAppointmentInvalidWritesNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := validRequest()
	req.Age = "31"
	req.Date = "2030-04-30"

	_, err := env.usecase.CreateAppointment(context.Background(), req, "")
	var errs validation.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("CreateAppointment() error = %v, want validation.Errors", err)
	}
	if errs[validation.FieldAge] != "La edad no puede ser mayor a 30 años" {
		t.Fatalf("age error = %q", errs[validation.FieldAge])
	}
	if errs[validation.FieldDate] != "La fecha debe ser futura" {
		t.Fatalf("date error = %q", errs[validation.FieldDate])
	}
	if n := countRows(t, env.db, &entity.Appointment{}); n != 0 {
		t.Fatalf("appointments = %d, want 0", n)
	}
	if n := countRows(t, env.db, &entity.AuditLog{}); n != 0 {
		t.Fatalf("audit rows = %d, want 0", n)
	}
}

func TestCreateAppointmentIdempotencyKey(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	bad := validRequest()
	bad.Email = ""
	if _, err := env.usecase.CreateAppointment(ctx, bad, "form-1"); err == nil {
		t.Fatalf("invalid form should fail")
	}

	if _, err := env.usecase.CreateAppointment(ctx, validRequest(), "form-1"); err != nil {
		t.Fatalf("key should be released after a failed submission, got %v", err)
	}
	if _, err := env.usecase.CreateAppointment(ctx, validRequest(), "form-1"); !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("second submission error = %v, want ErrDuplicateSubmission", err)
	}
	if _, err := env.usecase.CreateAppointment(ctx, validRequest(), ""); err != nil {
		t.Fatalf("submission without key error = %v", err)
	}

	if n := countRows(t, env.db, &entity.Appointment{}); n != 2 {
		t.Fatalf("appointments = %d, want 2", n)
	}
}

func TestConfirmationTransitions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.usecase.CreateAppointment(ctx, validRequest(), "")
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}

	resp, err := env.usecase.ConfirmAppointment(ctx, created.ID)
	if err != nil || !resp.Confirmed {
		t.Fatalf("ConfirmAppointment() = %+v, %v", resp, err)
	}
	resp, err = env.usecase.SetConfirmed(ctx, created.ID, true)
	if err != nil || !resp.Confirmed {
		t.Fatalf("SetConfirmed(true) on confirmed = %+v, %v", resp, err)
	}
	resp, err = env.usecase.UnconfirmAppointment(ctx, created.ID)
	if err != nil || resp.Confirmed {
		t.Fatalf("UnconfirmAppointment() = %+v, %v", resp, err)
	}

	first, err := env.usecase.ToggleConfirmed(ctx, created.ID)
	if err != nil || !first.Confirmed {
		t.Fatalf("first toggle = %+v, %v", first, err)
	}
	second, err := env.usecase.ToggleConfirmed(ctx, created.ID)
	if err != nil || second.Confirmed {
		t.Fatalf("second toggle = %+v, %v", second, err)
	}

	stored, _ := env.usecase.GetAppointment(ctx, created.ID)
	stored.UpdatedAt = created.UpdatedAt
	stored.CreatedAt = created.CreatedAt
	if *stored != *created {
		t.Fatalf("toggle round trip changed fields:\n got %+v\nwant %+v", stored, created)
	}

	stats, err := env.usecase.GetStats(ctx)
	if err != nil || stats.Pending != 1 || stats.Confirmed != 0 || stats.Total != 1 {
		t.Fatalf("GetStats() = %+v, %v", stats, err)
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.usecase.CreateAppointment(ctx, validRequest(), "")
	if err := env.usecase.DeleteAppointment(ctx, created.ID); err != nil {
		t.Fatalf("DeleteAppointment() error = %v", err)
	}

	if _, err := env.usecase.GetAppointment(ctx, created.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("GetAppointment() after delete error = %v", err)
	}
	if _, err := env.usecase.ConfirmAppointment(ctx, created.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("ConfirmAppointment() after delete error = %v", err)
	}
	if err := env.usecase.DeleteAppointment(ctx, created.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("second DeleteAppointment() error = %v", err)
	}
	if _, err := env.usecase.UpdateAppointment(ctx, created.ID, validRequest()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("UpdateAppointment() after delete error = %v", err)
	}
}

func TestDeleteAllConfirmed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	a, _ := env.usecase.CreateAppointment(ctx, validRequest(), "")
	b, _ := env.usecase.CreateAppointment(ctx, validRequest(), "")
	if _, err := env.usecase.ConfirmAppointment(ctx, a.ID); err != nil {
		t.Fatalf("ConfirmAppointment() error = %v", err)
	}

	resp, err := env.usecase.DeleteAllConfirmed(ctx)
	if err != nil || resp.Deleted != 1 {
		t.Fatalf("DeleteAllConfirmed() = %+v, %v", resp, err)
	}

	list, err := env.usecase.ListAppointments(ctx, entity.AppointmentFilter{})
	if err != nil || list.Total != 1 || list.Appointments[0].ID != b.ID {
		t.Fatalf("ListAppointments() = %+v, %v", list, err)
	}
}

func TestUpdateAppointmentKeepsConfirmation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.usecase.CreateAppointment(ctx, validRequest(), "")
	if _, err := env.usecase.ConfirmAppointment(ctx, created.ID); err != nil {
		t.Fatalf("ConfirmAppointment() error = %v", err)
	}

	req := validRequest()
	req.Time = "16:45"
	req.Veterinarian = "DRA_SILVA"
	req.Notes = "Trae exámenes previos"
	updated, err := env.usecase.UpdateAppointment(ctx, created.ID, req)
	if err != nil {
		t.Fatalf("UpdateAppointment() error = %v", err)
	}
	if !updated.Confirmed || updated.Time != "16:45" || updated.Veterinarian.Code != "DRA_SILVA" || updated.Notes != "Trae exámenes previos" {
		t.Fatalf("UpdateAppointment() = %+v", updated)
	}

	req.Time = "25:00"
	_, err = env.usecase.UpdateAppointment(ctx, created.ID, req)
	var errs validation.Errors
	if !errors.As(err, &errs) || errs[validation.FieldTime] == "" {
		t.Fatalf("UpdateAppointment() with bad time error = %v", err)
	}
}

func TestWatchAppointmentsRefreshesAfterChange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := env.usecase.WatchAppointments(ctx, entity.AppointmentFilter{Status: entity.AppointmentStatusPending})
	if err != nil {
		t.Fatalf("WatchAppointments() error = %v", err)
	}

	initial := <-updates
	if initial.Total != 0 {
		t.Fatalf("initial snapshot = %+v", initial)
	}

	if _, err := env.usecase.CreateAppointment(context.Background(), validRequest(), ""); err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}

	select {
	case snapshot := <-updates:
		if snapshot.Total != 1 {
			t.Fatalf("refreshed snapshot = %+v, want 1 appointment", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot after change")
	}

	cancel()
	for range updates {
	}
}

func TestShareAndNotificationPreview(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	req := validRequest()
	muted := false
	req.ReminderEnabled = &muted
	created, _ := env.usecase.CreateAppointment(ctx, req, "")

	text, err := env.usecase.ShareAppointment(ctx, created.ID)
	if err != nil || !strings.Contains(text, "Fecha: 02/05/2030") || !strings.Contains(text, "🔕 Recordatorio desactivado") {
		t.Fatalf("ShareAppointment() = %q, %v", text, err)
	}

	list, err := env.usecase.ShareAppointments(ctx, entity.AppointmentFilter{})
	if err != nil || !strings.Contains(list, "Total: 1 citas") {
		t.Fatalf("ShareAppointments() = %q, %v", list, err)
	}

	preview, err := env.usecase.PreviewNotification(ctx, created.ID)
	if err != nil {
		t.Fatalf("PreviewNotification() error = %v", err)
	}
	if preview.WillSend {
		t.Fatalf("reminder disabled on the appointment, WillSend should be false")
	}
	if preview.DeepLink != fmt.Sprintf("puppychop://appointments/%d", created.ID) {
		t.Fatalf("DeepLink = %q", preview.DeepLink)
	}
}

func TestValidateForm(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.usecase.ValidateForm(context.Background(), validRequest())
	if !resp.Valid || len(resp.Errors) != 0 {
		t.Fatalf("ValidateForm() = %+v", resp)
	}

	req := validRequest()
	req.OwnerName = "R2D2"
	req.Date = ""
	resp = env.usecase.ValidateForm(context.Background(), req)
	if resp.Valid || resp.Errors["owner_name"] != "Solo se permiten letras" || resp.Errors["date"] != "La fecha es requerida" {
		t.Fatalf("ValidateForm() = %+v", resp)
	}
}
