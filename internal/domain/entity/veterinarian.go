package entity

import "database/sql/driver"

// Veterinarian identifies the clinic staff member assigned to an appointment.
type Veterinarian string

const (
	VeterinarianMartinez Veterinarian = "DR_MARTINEZ"
	VeterinarianLopez    Veterinarian = "DRA_LOPEZ"
	VeterinarianGonzalez Veterinarian = "DR_GONZALEZ"
	VeterinarianSilva    Veterinarian = "DRA_SILVA"
	VeterinarianSalas    Veterinarian = "DRA_SALAS"
	VeterinarianRojas    Veterinarian = "DR_ROJAS"
	DefaultVeterinarian               = VeterinarianMartinez
)

var veterinarians = []Veterinarian{
	VeterinarianMartinez,
	VeterinarianLopez,
	VeterinarianGonzalez,
	VeterinarianSilva,
	VeterinarianSalas,
	VeterinarianRojas,
}

type veterinarianInfo struct {
	name      string
	specialty string
}

var veterinarianInfos = map[Veterinarian]veterinarianInfo{
	VeterinarianMartinez: {name: "Dr. Carlos Martínez", specialty: "Medicina General"},
	VeterinarianLopez:    {name: "Dra. Ana López", specialty: "Cirugía"},
	VeterinarianGonzalez: {name: "Dr. Pedro González", specialty: "Pediatría Veterinaria"},
	VeterinarianSilva:    {name: "Dra. María Silva", specialty: "Dermatología"},
	VeterinarianSalas:    {name: "Dra. Estrella Salas", specialty: "Estética Canina"},
	VeterinarianRojas:    {name: "Dr. Juan Rojas", specialty: "Emergencias"},
}

func Veterinarians() []Veterinarian {
	return append([]Veterinarian(nil), veterinarians...)
}

func ParseVeterinarian(raw string) Decoded[Veterinarian] {
	return decode(raw, veterinarians, DefaultVeterinarian)
}

// VeterinarianFromString decodes raw, falling back to the first listed veterinarian.
func VeterinarianFromString(raw string) Veterinarian {
	return ParseVeterinarian(raw).Value
}

func (v Veterinarian) IsValid() bool {
	_, ok := veterinarianInfos[v]
	return ok
}

func (v Veterinarian) DisplayName() string {
	return veterinarianInfos[VeterinarianFromString(string(v))].name
}

func (v Veterinarian) Specialty() string {
	return veterinarianInfos[VeterinarianFromString(string(v))].specialty
}

func (v *Veterinarian) Scan(value interface{}) error {
	raw, err := scanToken(value)
	if err != nil {
		return err
	}
	*v = VeterinarianFromString(raw)
	return nil
}

func (v Veterinarian) Value() (driver.Value, error) {
	return tokenValue(v)
}
