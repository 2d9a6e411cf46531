package entity

import "database/sql/driver"

// ServiceType is the category of veterinary visit.
type ServiceType string

const (
	ServiceTypeConsultation ServiceType = "CONSULTA"
	ServiceTypeVaccination  ServiceType = "VACUNACION"
	ServiceTypeSurgery      ServiceType = "CIRUGIA"
	ServiceTypeCheckup      ServiceType = "CONTROL"
	ServiceTypeEmergency    ServiceType = "EMERGENCIA"
	ServiceTypeDeworming    ServiceType = "DESPARASITACION"
	ServiceTypeGrooming     ServiceType = "ESTETICA"
	DefaultServiceType                  = ServiceTypeConsultation
)

var serviceTypes = []ServiceType{
	ServiceTypeConsultation,
	ServiceTypeVaccination,
	ServiceTypeSurgery,
	ServiceTypeCheckup,
	ServiceTypeEmergency,
	ServiceTypeDeworming,
	ServiceTypeGrooming,
}

var serviceTypeNames = map[ServiceType]string{
	ServiceTypeConsultation: "Consulta General",
	ServiceTypeVaccination:  "Vacunación",
	ServiceTypeSurgery:      "Cirugía",
	ServiceTypeCheckup:      "Control Médico",
	ServiceTypeEmergency:    "Emergencia",
	ServiceTypeDeworming:    "Desparasitación",
	ServiceTypeGrooming:     "Estética y Peluquería",
}

// ServiceTypes returns every service type in display order.
func ServiceTypes() []ServiceType {
	return append([]ServiceType(nil), serviceTypes...)
}

func ParseServiceType(raw string) Decoded[ServiceType] {
	return decode(raw, serviceTypes, DefaultServiceType)
}

// ServiceTypeFromString decodes raw, falling back to the default service type.
func ServiceTypeFromString(raw string) ServiceType {
	return ParseServiceType(raw).Value
}

func (s ServiceType) IsValid() bool {
	_, ok := serviceTypeNames[s]
	return ok
}

func (s ServiceType) DisplayName() string {
	return serviceTypeNames[ServiceTypeFromString(string(s))]
}

func (s *ServiceType) Scan(value interface{}) error {
	raw, err := scanToken(value)
	if err != nil {
		return err
	}
	*s = ServiceTypeFromString(raw)
	return nil
}

func (s ServiceType) Value() (driver.Value, error) {
	return tokenValue(s)
}
