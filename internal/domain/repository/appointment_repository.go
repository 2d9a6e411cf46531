package repository

import (
	"time"

	"puppychop-api/internal/domain/entity"

	"gorm.io/gorm"
)

type AppointmentRepository interface {
	// Save inserts the appointment, replacing any row with the same ID.
	Save(db *gorm.DB, appointment *entity.Appointment) error
	Update(db *gorm.DB, appointment *entity.Appointment) error
	Delete(db *gorm.DB, id int64) (int64, error)
	FindByID(db *gorm.DB, id int64) (*entity.Appointment, error)
	FindAll(db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error)
	UpdateConfirmed(db *gorm.DB, id int64, confirmed bool) (int64, error)
	DeleteAllConfirmed(db *gorm.DB) (int64, error)
	CountPending(db *gorm.DB) (int64, error)
	CountConfirmed(db *gorm.DB) (int64, error)
	// FindRemindersBetween returns reminder-enabled appointments with a date in [from, to).
	FindRemindersBetween(db *gorm.DB, from, to time.Time) ([]entity.Appointment, error)
}
