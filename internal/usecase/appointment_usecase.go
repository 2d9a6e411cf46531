package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"puppychop-api/internal/converter"
	"puppychop-api/internal/delivery/dto"
	"puppychop-api/internal/delivery/http/middleware"
	"puppychop-api/internal/domain/entity"
	"puppychop-api/internal/domain/repository"
	"puppychop-api/internal/domain/validation"
	"puppychop-api/internal/notification"
	"puppychop-api/internal/service"
	"puppychop-api/internal/share"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	appointmentEntity = "appointment"

	// DefaultSubmissionTTL is how long an Idempotency-Key stays claimed after
	// a successful create.
	DefaultSubmissionTTL = 10 * time.Minute
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDuplicateSubmission = errors.New("appointment form already submitted")
)

type AppointmentUsecase interface {
	ValidateForm(ctx context.Context, req *dto.AppointmentRequest) *dto.FormValidationResponse
	CreateAppointment(ctx context.Context, req *dto.AppointmentRequest, idempotencyKey string) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, id int64) (*dto.AppointmentResponse, error)
	ListAppointments(ctx context.Context, filter entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
	WatchAppointments(ctx context.Context, filter entity.AppointmentFilter) (<-chan *dto.AppointmentListResponse, error)
	UpdateAppointment(ctx context.Context, id int64, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error)
	ConfirmAppointment(ctx context.Context, id int64) (*dto.AppointmentResponse, error)
	UnconfirmAppointment(ctx context.Context, id int64) (*dto.AppointmentResponse, error)
	SetConfirmed(ctx context.Context, id int64, confirmed bool) (*dto.AppointmentResponse, error)
	ToggleConfirmed(ctx context.Context, id int64) (*dto.AppointmentResponse, error)
	DeleteAppointment(ctx context.Context, id int64) error
	DeleteAllConfirmed(ctx context.Context) (*dto.DeleteConfirmedResponse, error)
	GetStats(ctx context.Context) (*dto.AppointmentStatsResponse, error)
	ShareAppointment(ctx context.Context, id int64) (string, error)
	ShareAppointments(ctx context.Context, filter entity.AppointmentFilter) (string, error)
	PreviewNotification(ctx context.Context, id int64) (*dto.NotificationResponse, error)
}

type appointmentUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	appointmentRepo  repository.AppointmentRepository
	auditService     service.AuditService
	changeNotifier   service.ChangeNotifier
	submissionGuard  service.SubmissionGuard
	validator        *validation.AppointmentValidator
	formatter        *share.Formatter
	loc              *time.Location
	remindersEnabled bool
	submissionTTL    time.Duration
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
	changeNotifier service.ChangeNotifier,
	submissionGuard service.SubmissionGuard,
	validator *validation.AppointmentValidator,
	loc *time.Location,
	remindersEnabled bool,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:               db,
		log:              log,
		appointmentRepo:  appointmentRepo,
		auditService:     auditService,
		changeNotifier:   changeNotifier,
		submissionGuard:  submissionGuard,
		validator:        validator,
		formatter:        share.NewFormatter(loc),
		loc:              loc,
		remindersEnabled: remindersEnabled,
		submissionTTL:    DefaultSubmissionTTL,
	}
}

// ValidateForm runs every field rule without touching the store.
func (u *appointmentUsecase) ValidateForm(ctx context.Context, req *dto.AppointmentRequest) *dto.FormValidationResponse {
	errs := u.validator.ValidateForm(converter.RequestToForm(req, u.loc))
	return &dto.FormValidationResponse{
		Valid:  len(errs) == 0,
		Errors: converter.ValidationErrorsToMap(errs),
	}
}

// CreateAppointment validates the form and persists a new pending
// appointment. Invalid input returns validation.Errors and writes nothing.
//
// When idempotencyKey is set the key is claimed first; a second submission
// with the same key is rejected with ErrDuplicateSubmission while the first
// one is in flight or after it succeeded. A failed create releases the key.
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.AppointmentRequest, idempotencyKey string) (resp *dto.AppointmentResponse, err error) {
	if idempotencyKey != "" && u.submissionGuard != nil {
		acquired, guardErr := u.submissionGuard.Acquire(ctx, idempotencyKey, u.submissionTTL)
		switch {
		case guardErr != nil:
			u.log.Warnf("Submission guard unavailable, continuing without it: %+v", guardErr)
		case !acquired:
			return nil, ErrDuplicateSubmission
		default:
			defer func() {
				if err != nil {
					if releaseErr := u.submissionGuard.Release(context.Background(), idempotencyKey); releaseErr != nil {
						u.log.Warnf("Failed to release submission key: %+v", releaseErr)
					}
				}
			}()
		}
	}

	appointment, errs := u.validator.Build(converter.RequestToForm(req, u.loc))
	if errs != nil {
		return nil, errs
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.appointmentRepo.Save(tx, appointment); err != nil {
		u.log.Warnf("Failed to save appointment: %+v", err)
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	if err := u.auditService.LogCreate(ctx, tx, actorFromContext(ctx), entity.AuditActionAppointmentCreate, appointmentEntity, idString(appointment.ID), appointment.Snapshot()); err != nil {
		return nil, fmt.Errorf("audit appointment create: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed to commit appointment: %+v", err)
		return nil, fmt.Errorf("commit appointment: %w", err)
	}

	u.publish(ctx, entity.AuditActionAppointmentCreate, appointment.ID)
	u.log.Infof("Appointment created: id=%d, pet=%s, date=%s %s", appointment.ID, appointment.PetName, appointment.Date.In(u.loc).Format(validation.DateLayout), appointment.Time)
	return converter.AppointmentToResponse(appointment, u.loc), nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id int64) (*dto.AppointmentResponse, error) {
	appointment, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment, u.loc), nil
}

// ListAppointments returns appointments ordered by date then time.
func (u *appointmentUsecase) ListAppointments(ctx context.Context, filter entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments: %+v", err)
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments, u.loc),
		Total:        len(appointments),
	}, nil
}

// WatchAppointments emits the current list and a fresh snapshot after every
// change event. When the consumer falls behind only the latest snapshot is
// kept. The channel closes when ctx is done.
func (u *appointmentUsecase) WatchAppointments(ctx context.Context, filter entity.AppointmentFilter) (<-chan *dto.AppointmentListResponse, error) {
	ctx, cancel := context.WithCancel(ctx)

	events, err := u.changeNotifier.Subscribe(ctx)
	if err != nil {
		cancel()
		u.log.Warnf("Failed to subscribe to appointment changes: %+v", err)
		return nil, fmt.Errorf("subscribe to appointment changes: %w", err)
	}

	initial, err := u.ListAppointments(ctx, filter)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan *dto.AppointmentListResponse, 1)
	out <- initial

	go func() {
		defer cancel()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				snapshot, err := u.ListAppointments(ctx, filter)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					continue
				}
				select {
				case out <- snapshot:
				default:
					select {
					case <-out:
					default:
					}
					out <- snapshot
				}
			}
		}
	}()

	return out, nil
}

// UpdateAppointment replaces the editable fields. The form is validated
// again, including the future date rule. Confirmation state is kept.
func (u *appointmentUsecase) UpdateAppointment(ctx context.Context, id int64, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error) {
	updated, errs := u.validator.Build(converter.RequestToForm(req, u.loc))
	if errs != nil {
		return nil, errs
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	existing, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", id, err)
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	if existing == nil {
		return nil, ErrAppointmentNotFound
	}

	old := existing.Snapshot()
	updated.ID = existing.ID
	updated.Confirmed = existing.Confirmed
	updated.CreatedAt = existing.CreatedAt

	if err := u.appointmentRepo.Update(tx, updated); err != nil {
		u.log.Warnf("Failed to update appointment %d: %+v", id, err)
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	if err := u.auditService.LogUpdate(ctx, tx, actorFromContext(ctx), entity.AuditActionAppointmentUpdate, appointmentEntity, idString(id), old, updated.Snapshot()); err != nil {
		return nil, fmt.Errorf("audit appointment update: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit appointment update: %w", err)
	}

	u.publish(ctx, entity.AuditActionAppointmentUpdate, id)
	u.log.Infof("Appointment updated: id=%d", id)
	return converter.AppointmentToResponse(updated, u.loc), nil
}

func (u *appointmentUsecase) ConfirmAppointment(ctx context.Context, id int64) (*dto.AppointmentResponse, error) {
	return u.changeConfirmed(ctx, id, (*entity.Appointment).Confirm)
}

func (u *appointmentUsecase) UnconfirmAppointment(ctx context.Context, id int64) (*dto.AppointmentResponse, error) {
	return u.changeConfirmed(ctx, id, (*entity.Appointment).Unconfirm)
}

// SetConfirmed writes the flag even when it already has the requested value.
func (u *appointmentUsecase) SetConfirmed(ctx context.Context, id int64, confirmed bool) (*dto.AppointmentResponse, error) {
	return u.changeConfirmed(ctx, id, func(a *entity.Appointment) {
		a.SetConfirmed(confirmed)
	})
}

func (u *appointmentUsecase) ToggleConfirmed(ctx context.Context, id int64) (*dto.AppointmentResponse, error) {
	return u.changeConfirmed(ctx, id, func(a *entity.Appointment) {
		a.ToggleConfirmed()
	})
}

func (u *appointmentUsecase) changeConfirmed(ctx context.Context, id int64, apply func(*entity.Appointment)) (*dto.AppointmentResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", id, err)
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	old := appointment.Snapshot()
	apply(appointment)

	affected, err := u.appointmentRepo.UpdateConfirmed(tx, id, appointment.Confirmed)
	if err != nil {
		u.log.Warnf("Failed to update confirmation of appointment %d: %+v", id, err)
		return nil, fmt.Errorf("update confirmation: %w", err)
	}
	if affected == 0 {
		return nil, ErrAppointmentNotFound
	}

	action := entity.AuditActionAppointmentUnconfirm
	if appointment.IsConfirmed() {
		action = entity.AuditActionAppointmentConfirm
	}
	if err := u.auditService.LogUpdate(ctx, tx, actorFromContext(ctx), action, appointmentEntity, idString(id), old, appointment.Snapshot()); err != nil {
		return nil, fmt.Errorf("audit confirmation: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit confirmation: %w", err)
	}

	u.publish(ctx, action, id)
	u.log.Infof("Appointment %d is now %s", id, appointment.Status())
	return converter.AppointmentToResponse(appointment, u.loc), nil
}

// DeleteAppointment removes the appointment. Later operations on the same id
// report ErrAppointmentNotFound.
func (u *appointmentUsecase) DeleteAppointment(ctx context.Context, id int64) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", id, err)
		return fmt.Errorf("find appointment: %w", err)
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	affected, err := u.appointmentRepo.Delete(tx, id)
	if err != nil {
		u.log.Warnf("Failed to delete appointment %d: %+v", id, err)
		return fmt.Errorf("delete appointment: %w", err)
	}
	if affected == 0 {
		return ErrAppointmentNotFound
	}

	if err := u.auditService.LogDelete(ctx, tx, actorFromContext(ctx), entity.AuditActionAppointmentDelete, appointmentEntity, idString(id), appointment.Snapshot()); err != nil {
		return fmt.Errorf("audit appointment delete: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit appointment delete: %w", err)
	}

	u.publish(ctx, entity.AuditActionAppointmentDelete, id)
	u.log.Infof("Appointment deleted: id=%d", id)
	return nil
}

func (u *appointmentUsecase) DeleteAllConfirmed(ctx context.Context) (*dto.DeleteConfirmedResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	deleted, err := u.appointmentRepo.DeleteAllConfirmed(tx)
	if err != nil {
		u.log.Warnf("Failed to delete confirmed appointments: %+v", err)
		return nil, fmt.Errorf("delete confirmed appointments: %w", err)
	}

	if err := u.auditService.LogDelete(ctx, tx, actorFromContext(ctx), entity.AuditActionAppointmentDeleteConfirmed, appointmentEntity, "*", map[string]interface{}{"deleted": deleted}); err != nil {
		return nil, fmt.Errorf("audit bulk delete: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit bulk delete: %w", err)
	}

	if deleted > 0 {
		u.publish(ctx, entity.AuditActionAppointmentDeleteConfirmed, 0)
	}
	u.log.Infof("Confirmed appointments deleted: count=%d", deleted)
	return &dto.DeleteConfirmedResponse{Deleted: deleted}, nil
}

func (u *appointmentUsecase) GetStats(ctx context.Context) (*dto.AppointmentStatsResponse, error) {
	db := u.db.WithContext(ctx)

	pending, err := u.appointmentRepo.CountPending(db)
	if err != nil {
		u.log.Warnf("Failed to count pending appointments: %+v", err)
		return nil, fmt.Errorf("count pending: %w", err)
	}
	confirmed, err := u.appointmentRepo.CountConfirmed(db)
	if err != nil {
		u.log.Warnf("Failed to count confirmed appointments: %+v", err)
		return nil, fmt.Errorf("count confirmed: %w", err)
	}

	return &dto.AppointmentStatsResponse{
		Pending:   pending,
		Confirmed: confirmed,
		Total:     pending + confirmed,
	}, nil
}

func (u *appointmentUsecase) ShareAppointment(ctx context.Context, id int64) (string, error) {
	appointment, err := u.find(ctx, id)
	if err != nil {
		return "", err
	}
	return u.formatter.Appointment(appointment), nil
}

func (u *appointmentUsecase) ShareAppointments(ctx context.Context, filter entity.AppointmentFilter) (string, error) {
	appointments, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments: %+v", err)
		return "", fmt.Errorf("list appointments: %w", err)
	}
	return u.formatter.List(appointments), nil
}

// PreviewNotification builds the reminder for an appointment and reports
// whether the reminder job would deliver it.
func (u *appointmentUsecase) PreviewNotification(ctx context.Context, id int64) (*dto.NotificationResponse, error) {
	appointment, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	n := notification.ForAppointment(appointment)
	return converter.NotificationToResponse(n, u.remindersEnabled && appointment.ReminderEnabled), nil
}

func (u *appointmentUsecase) find(ctx context.Context, id int64) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", id, err)
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

func (u *appointmentUsecase) publish(ctx context.Context, action string, id int64) {
	if err := u.changeNotifier.Publish(ctx, service.NewChangeEvent(action, id)); err != nil {
		u.log.Warnf("Failed to publish appointment change: %+v", err)
	}
}

func actorFromContext(ctx context.Context) string {
	if staffID, ok := middleware.GetStaffIDFromContext(ctx); ok {
		return "staff:" + staffID
	}
	return entity.ActorAnonymous
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
