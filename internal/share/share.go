// Package share renders appointments as plain text for messaging apps.
package share

import (
	"fmt"
	"strings"
	"time"

	"puppychop-api/internal/domain/entity"
)

const (
	DateLayout = "02/01/2006"
	rule       = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	footer     = "🐾 PuppyChop - Cuidamos a tu mejor amigo"
)

// Formatter renders dates in the clinic's timezone.
type Formatter struct {
	loc *time.Location
}

func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{loc: loc}
}

// FormatDate renders the calendar date of t as dd/MM/yyyy.
func (f *Formatter) FormatDate(t time.Time) string {
	return t.In(f.loc).Format(DateLayout)
}

type textBuilder struct {
	strings.Builder
}

func (b *textBuilder) line(parts ...string) {
	for _, p := range parts {
		b.WriteString(p)
	}
	b.WriteByte('\n')
}

func (b *textBuilder) section(title string, lines ...string) {
	b.line(title)
	b.line(rule)
	for _, l := range lines {
		b.line(l)
	}
	b.line()
}

// Appointment renders the full share block for one appointment.
func (f *Formatter) Appointment(a *entity.Appointment) string {
	var b textBuilder

	b.line("🐶 CITA VETERINARIA PUPPYCHOP")
	b.line(rule)
	b.line()
	b.section("👤 DATOS DEL DUEÑO",
		"Nombre: "+a.OwnerName,
		"Teléfono: "+a.Phone,
		"Email: "+a.Email,
	)
	b.section("🐕 DATOS DE LA MASCOTA",
		"Nombre: "+a.PetName,
		"Raza: "+a.Breed,
		fmt.Sprintf("Edad: %d años", a.PetAge),
	)
	b.section("📋 INFORMACIÓN DE LA CITA",
		"Servicio: "+a.ServiceType.DisplayName(),
		"Fecha: "+f.FormatDate(a.Date),
		"Hora: "+a.Time,
		"Veterinario: "+a.Veterinarian.DisplayName(),
		"Prioridad: "+a.Priority.DisplayName(),
	)
	b.section("📝 MOTIVO DE LA CONSULTA", a.Reason)
	if a.Notes != "" {
		b.section("📌 NOTAS ADICIONALES", a.Notes)
	}

	if a.ReminderEnabled {
		b.line("🔔 Recordatorio activado")
	} else {
		b.line("🔕 Recordatorio desactivado")
	}
	b.line()
	if a.Confirmed {
		b.line("✅ Cita Confirmada")
	} else {
		b.line("⏳ Cita Pendiente de Confirmar")
	}
	b.line()
	b.line(rule)
	b.line(footer)

	return b.String()
}

// List renders a numbered summary of appointments in the given order.
func (f *Formatter) List(appointments []entity.Appointment) string {
	var b textBuilder

	b.line("🐶 LISTA DE CITAS PUPPYCHOP")
	b.line(rule)
	b.line()

	for i, a := range appointments {
		b.line(fmt.Sprintf("%d. 🐕 %s", i+1, a.PetName))
		b.line("   Dueño: ", a.OwnerName)
		b.line("   Servicio: ", a.ServiceType.DisplayName())
		b.line("   Fecha: ", f.FormatDate(a.Date), " • ", a.Time)
		if a.Confirmed {
			b.line("   ✅ Confirmada")
		} else {
			b.line("   ⏳ Pendiente")
		}
		b.line()
	}

	b.line(rule)
	b.line(fmt.Sprintf("Total: %d citas", len(appointments)))
	b.line(footer)

	return b.String()
}
