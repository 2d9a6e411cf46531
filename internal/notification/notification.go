// Package notification builds appointment reminders and delivers them.
package notification

import (
	"context"
	"fmt"
	"strings"

	"puppychop-api/internal/domain/entity"
)

const deepLinkFormat = "puppychop://appointments/%d"

// Notification is a reminder for one appointment.
type Notification struct {
	AppointmentID int64  `json:"appointment_id"`
	Recipient     string `json:"recipient"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	BigText       string `json:"big_text"`
	DeepLink      string `json:"deep_link"`
}

// Sender delivers a notification. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

func DeepLink(appointmentID int64) string {
	return fmt.Sprintf(deepLinkFormat, appointmentID)
}

// ForAppointment builds the reminder shown on the day of the appointment.
func ForAppointment(a *entity.Appointment) Notification {
	return Notification{
		AppointmentID: a.ID,
		Recipient:     a.Phone,
		Title:         "🐶 Recordatorio de Cita - " + a.PetName,
		Text:          "Cita con el veterinario hoy a las " + a.Time,
		BigText: strings.Join([]string{
			"🐕 Mascota: " + a.PetName,
			"👤 Dueño: " + a.OwnerName,
			"⏰ Hora: " + a.Time,
			"📋 Motivo: " + a.Reason,
		}, "\n"),
		DeepLink: DeepLink(a.ID),
	}
}

// Message flattens the notification into a single chat message body.
func (n Notification) Message() string {
	return n.Title + "\n\n" + n.BigText + "\n\n" + n.DeepLink
}
