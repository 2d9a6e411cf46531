package entity

// AppointmentFilter is a domain-level filter for querying appointments.
// Used by repository layer to avoid coupling with delivery DTOs.
// Zero values mean "no restriction".
type AppointmentFilter struct {
	Status       AppointmentStatus
	ServiceType  ServiceType
	Veterinarian Veterinarian
}
