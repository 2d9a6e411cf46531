package dto

import "time"

// Request DTOs

// AppointmentRequest carries the raw form. Fields are strings on purpose:
// every value is checked by the appointment validator, which reports
// per-field messages instead of a decode error.
type AppointmentRequest struct {
	OwnerName       string `json:"owner_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	PetName         string `json:"pet_name"`
	Breed           string `json:"breed"`
	Age             string `json:"age"`
	ServiceType     string `json:"service_type"`
	Reason          string `json:"reason"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Veterinarian    string `json:"veterinarian"`
	Priority        string `json:"priority"`
	ReminderEnabled *bool  `json:"reminder_enabled"`
	Notes           string `json:"notes" validate:"max=1000"`
}

type SetConfirmedRequest struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

type AppointmentListQuery struct {
	Status       string `json:"status" validate:"omitempty,oneof=pending confirmed all"`
	ServiceType  string `json:"service_type" validate:"omitempty,max=30"`
	Veterinarian string `json:"veterinarian" validate:"omitempty,max=30"`
}

// Response DTOs

type ServiceTypeResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type PriorityResponse struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type VeterinarianResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type AppointmentResponse struct {
	ID              int64                `json:"id"`
	OwnerName       string               `json:"owner_name"`
	Phone           string               `json:"phone"`
	Email           string               `json:"email"`
	PetName         string               `json:"pet_name"`
	Breed           string               `json:"breed"`
	PetAge          int                  `json:"pet_age"`
	ServiceType     ServiceTypeResponse  `json:"service_type"`
	Reason          string               `json:"reason"`
	Date            string               `json:"date"`
	DateDisplay     string               `json:"date_display"`
	Time            string               `json:"time"`
	Veterinarian    VeterinarianResponse `json:"veterinarian"`
	Priority        PriorityResponse     `json:"priority"`
	Status          string               `json:"status"`
	Confirmed       bool                 `json:"confirmed"`
	ReminderEnabled bool                 `json:"reminder_enabled"`
	Notes           string               `json:"notes"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type AppointmentStatsResponse struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Total     int64 `json:"total"`
}

type DeleteConfirmedResponse struct {
	Deleted int64 `json:"deleted"`
}

type FormValidationResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

type CatalogResponse struct {
	ServiceTypes  []ServiceTypeResponse  `json:"service_types"`
	Priorities    []PriorityResponse     `json:"priorities"`
	Veterinarians []VeterinarianResponse `json:"veterinarians"`
}

type NotificationResponse struct {
	AppointmentID int64  `json:"appointment_id"`
	Recipient     string `json:"recipient"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	BigText       string `json:"big_text"`
	DeepLink      string `json:"deep_link"`
	WillSend      bool   `json:"will_send"`
}
