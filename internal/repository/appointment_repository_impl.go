package repository

import (
	"errors"
	"time"

	"puppychop-api/internal/domain/entity"
	domainRepo "puppychop-api/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Save(db *gorm.DB, appointment *entity.Appointment) error {
	appointment.Date = appointment.Date.UTC()
	if appointment.ID == 0 {
		return db.Create(appointment).Error
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(appointment).Error
}

func (r *appointmentRepository) Update(db *gorm.DB, appointment *entity.Appointment) error {
	appointment.Date = appointment.Date.UTC()
	return db.Save(appointment).Error
}

func (r *appointmentRepository) Delete(db *gorm.DB, id int64) (int64, error) {
	result := db.Delete(&entity.Appointment{}, id)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id int64) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error) {
	query := db.Model(&entity.Appointment{})

	switch filter.Status {
	case entity.AppointmentStatusPending:
		query = query.Where("confirmed = ?", false)
	case entity.AppointmentStatusConfirmed:
		query = query.Where("confirmed = ?", true)
	}
	if filter.ServiceType != "" {
		query = query.Where("service_type = ?", filter.ServiceType)
	}
	if filter.Veterinarian != "" {
		query = query.Where("veterinarian = ?", filter.Veterinarian)
	}

	var appointments []entity.Appointment
	err := query.
		Order("appointment_date ASC").
		Order("appointment_time ASC").
		Order("id ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// UpdateConfirmed writes the flag unconditionally. Affected rows is 0 only
// when the appointment does not exist.
func (r *appointmentRepository) UpdateConfirmed(db *gorm.DB, id int64, confirmed bool) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"confirmed":  confirmed,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) DeleteAllConfirmed(db *gorm.DB) (int64, error) {
	result := db.Where("confirmed = ?", true).Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) CountPending(db *gorm.DB) (int64, error) {
	return r.countByConfirmed(db, false)
}

func (r *appointmentRepository) CountConfirmed(db *gorm.DB) (int64, error) {
	return r.countByConfirmed(db, true)
}

func (r *appointmentRepository) countByConfirmed(db *gorm.DB, confirmed bool) (int64, error) {
	var count int64
	err := db.Model(&entity.Appointment{}).Where("confirmed = ?", confirmed).Count(&count).Error
	return count, err
}

func (r *appointmentRepository) FindRemindersBetween(db *gorm.DB, from, to time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.
		Where("reminder_enabled = ?", true).
		Where("appointment_date >= ? AND appointment_date < ?", from.UTC(), to.UTC()).
		Order("appointment_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}
