package entity

import "time"

// AppointmentStatus is the derived pending/confirmed state of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
)

// Appointment is a scheduled veterinary visit. Owner and pet data are stored
// inline; there is no separate owner or pet table.
type Appointment struct {
	ID              int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerName       string       `gorm:"type:varchar(50);not null" json:"owner_name"`
	Phone           string       `gorm:"type:varchar(16);not null" json:"phone"`
	Email           string       `gorm:"type:varchar(255);not null" json:"email"`
	PetName         string       `gorm:"type:varchar(50);not null" json:"pet_name"`
	Breed           string       `gorm:"type:varchar(100);not null" json:"breed"`
	PetAge          int          `gorm:"not null" json:"pet_age"`
	ServiceType     ServiceType  `gorm:"type:varchar(30);not null;index" json:"service_type"`
	Reason          string       `gorm:"type:varchar(300);not null" json:"reason"`
	Date            time.Time    `gorm:"column:appointment_date;not null;index" json:"date"`
	Time            string       `gorm:"column:appointment_time;type:varchar(5);not null" json:"time"`
	Veterinarian    Veterinarian `gorm:"type:varchar(30);not null;index" json:"veterinarian"`
	Priority        Priority     `gorm:"type:varchar(10);not null" json:"priority"`
	Confirmed       bool         `gorm:"not null;index" json:"confirmed"`
	ReminderEnabled bool         `gorm:"not null" json:"reminder_enabled"`
	Notes           string       `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// Status reports the lifecycle state derived from Confirmed
func (a *Appointment) Status() AppointmentStatus {
	if a.Confirmed {
		return AppointmentStatusConfirmed
	}
	return AppointmentStatusPending
}

// IsPending checks if the appointment is waiting for confirmation
func (a *Appointment) IsPending() bool {
	return !a.Confirmed
}

// IsConfirmed checks if the appointment is confirmed
func (a *Appointment) IsConfirmed() bool {
	return a.Confirmed
}

// Confirm moves the appointment to confirmed
func (a *Appointment) Confirm() {
	a.Confirmed = true
}

// Unconfirm moves the appointment back to pending
func (a *Appointment) Unconfirm() {
	a.Confirmed = false
}

// SetConfirmed sets the flag. Setting the current value is allowed and changes nothing.
func (a *Appointment) SetConfirmed(confirmed bool) {
	a.Confirmed = confirmed
}

// ToggleConfirmed flips the flag and returns the new value
func (a *Appointment) ToggleConfirmed() bool {
	a.Confirmed = !a.Confirmed
	return a.Confirmed
}

// Snapshot returns a flat map of the fields recorded in audit metadata.
func (a *Appointment) Snapshot() JSON {
	return JSON{
		"owner_name":       a.OwnerName,
		"pet_name":         a.PetName,
		"service_type":     string(a.ServiceType),
		"date":             a.Date.UTC().Format(time.RFC3339),
		"time":             a.Time,
		"veterinarian":     string(a.Veterinarian),
		"priority":         string(a.Priority),
		"confirmed":        a.Confirmed,
		"reminder_enabled": a.ReminderEnabled,
	}
}
