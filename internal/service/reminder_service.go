package service

import (
	"context"
	"fmt"
	"time"

	"puppychop-api/internal/domain/repository"
	"puppychop-api/internal/notification"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const reminderRunTimeout = 2 * time.Minute

// ReminderService sends a reminder on the day of every appointment that has
// reminders enabled. It only reads appointments.
type ReminderService struct {
	db       *gorm.DB
	log      *logrus.Logger
	repo     repository.AppointmentRepository
	sender   notification.Sender
	loc      *time.Location
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

func NewReminderService(
	db *gorm.DB,
	log *logrus.Logger,
	repo repository.AppointmentRepository,
	sender notification.Sender,
	loc *time.Location,
	schedule string,
) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		db:       db,
		log:      log,
		repo:     repo,
		sender:   sender,
		loc:      loc,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(loc)),
		now:      time.Now,
	}
}

// Start registers the daily job and starts the scheduler loop.
func (s *ReminderService) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderRunTimeout)
		defer cancel()
		if _, err := s.SendDueReminders(ctx); err != nil {
			s.log.Errorf("Reminder run failed: %+v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.Infof("Reminder scheduler started: schedule=%q, timezone=%s", s.schedule, s.loc)
	return nil
}

// Stop waits for a running job to finish.
func (s *ReminderService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Reminder scheduler stopped")
}

// SendDueReminders notifies every reminder-enabled appointment dated today
// and returns how many were sent. A failed send is logged and skipped.
func (s *ReminderService) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	appointments, err := s.repo.FindRemindersBetween(s.db.WithContext(ctx), start, end)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for i := range appointments {
		n := notification.ForAppointment(&appointments[i])
		if err := s.sender.Send(ctx, n); err != nil {
			s.log.Warnf("Failed to send reminder for appointment %d: %+v", n.AppointmentID, err)
			continue
		}
		sent++
	}

	s.log.Infof("Reminder run complete: due=%d, sent=%d", len(appointments), sent)
	return sent, nil
}
