package converter

import (
	"time"

	"puppychop-api/internal/delivery/dto"
	"puppychop-api/internal/domain/entity"
	"puppychop-api/internal/domain/validation"
	"puppychop-api/internal/notification"
	"puppychop-api/internal/share"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// Dates are rendered in loc, the clinic's timezone.
func AppointmentToResponse(a *entity.Appointment, loc *time.Location) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	date := a.Date.In(loc)
	return &dto.AppointmentResponse{
		ID:              a.ID,
		OwnerName:       a.OwnerName,
		Phone:           a.Phone,
		Email:           a.Email,
		PetName:         a.PetName,
		Breed:           a.Breed,
		PetAge:          a.PetAge,
		ServiceType:     ServiceTypeToResponse(a.ServiceType),
		Reason:          a.Reason,
		Date:            date.Format(validation.DateLayout),
		DateDisplay:     date.Format(share.DateLayout),
		Time:            a.Time,
		Veterinarian:    VeterinarianToResponse(a.Veterinarian),
		Priority:        PriorityToResponse(a.Priority),
		Status:          string(a.Status()),
		Confirmed:       a.Confirmed,
		ReminderEnabled: a.ReminderEnabled,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment, loc *time.Location) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i], loc)
	}
	return responses
}

func ServiceTypeToResponse(s entity.ServiceType) dto.ServiceTypeResponse {
	s = entity.ServiceTypeFromString(string(s))
	return dto.ServiceTypeResponse{Code: string(s), Name: s.DisplayName()}
}

func PriorityToResponse(p entity.Priority) dto.PriorityResponse {
	p = entity.PriorityFromString(string(p))
	return dto.PriorityResponse{Code: string(p), Name: p.DisplayName(), Color: p.Color()}
}

func VeterinarianToResponse(v entity.Veterinarian) dto.VeterinarianResponse {
	v = entity.VeterinarianFromString(string(v))
	return dto.VeterinarianResponse{Code: string(v), Name: v.DisplayName(), Specialty: v.Specialty()}
}

// CatalogToResponse lists every selectable enumeration value.
func CatalogToResponse() *dto.CatalogResponse {
	resp := &dto.CatalogResponse{}
	for _, s := range entity.ServiceTypes() {
		resp.ServiceTypes = append(resp.ServiceTypes, ServiceTypeToResponse(s))
	}
	for _, p := range entity.Priorities() {
		resp.Priorities = append(resp.Priorities, PriorityToResponse(p))
	}
	for _, v := range entity.Veterinarians() {
		resp.Veterinarians = append(resp.Veterinarians, VeterinarianToResponse(v))
	}
	return resp
}

func NotificationToResponse(n notification.Notification, willSend bool) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		AppointmentID: n.AppointmentID,
		Recipient:     n.Recipient,
		Title:         n.Title,
		Text:          n.Text,
		BigText:       n.BigText,
		DeepLink:      n.DeepLink,
		WillSend:      willSend,
	}
}

// ValidationErrorsToMap keys field errors by their JSON field name.
func ValidationErrorsToMap(errs validation.Errors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for field, msg := range errs {
		out[string(field)] = msg
	}
	return out
}

// RequestToForm maps the raw request onto the validator's form. Dates are
// read in loc; a missing reminder flag defaults to enabled.
func RequestToForm(req *dto.AppointmentRequest, loc *time.Location) validation.Form {
	reminder := true
	if req.ReminderEnabled != nil {
		reminder = *req.ReminderEnabled
	}

	return validation.Form{
		OwnerName:       req.OwnerName,
		Phone:           req.Phone,
		Email:           req.Email,
		PetName:         req.PetName,
		Breed:           req.Breed,
		Age:             req.Age,
		ServiceType:     req.ServiceType,
		Reason:          req.Reason,
		Date:            validation.ParseDate(req.Date, loc),
		Time:            req.Time,
		Veterinarian:    req.Veterinarian,
		Priority:        req.Priority,
		ReminderEnabled: reminder,
		Notes:           req.Notes,
	}
}
