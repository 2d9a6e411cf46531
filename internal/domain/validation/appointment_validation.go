package validation

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"puppychop-api/internal/domain/entity"

	"github.com/go-playground/validator/v10"
)

// Field names an appointment form field. The value doubles as the JSON key
// used when reporting field errors.
type Field string

const (
	FieldOwnerName    Field = "owner_name"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldPetName      Field = "pet_name"
	FieldBreed        Field = "breed"
	FieldAge          Field = "age"
	FieldServiceType  Field = "service_type"
	FieldReason       Field = "reason"
	FieldDate         Field = "date"
	FieldTime         Field = "time"
	FieldVeterinarian Field = "veterinarian"
	FieldPriority     Field = "priority"
)

// Fields lists every validated field in form order.
var Fields = []Field{
	FieldOwnerName,
	FieldPhone,
	FieldEmail,
	FieldPetName,
	FieldBreed,
	FieldAge,
	FieldServiceType,
	FieldReason,
	FieldDate,
	FieldTime,
	FieldVeterinarian,
	FieldPriority,
}

var (
	personNamePattern = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑ ]+$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	emailPattern      = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}$`)
	timePattern       = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// rule is a validator tag chain plus the message reported for each tag.
// Tags run in order and the first failure decides the message, so the
// predicate and the message can never disagree.
type rule struct {
	tags     string
	messages map[string]string
}

var rules = map[Field]rule{
	FieldOwnerName: {
		tags: "notblank,min=2,max=50,personname",
		messages: map[string]string{
			"notblank":   "El nombre es requerido",
			"min":        "El nombre debe tener al menos 2 caracteres",
			"max":        "El nombre no puede exceder 50 caracteres",
			"personname": "Solo se permiten letras",
		},
	},
	FieldPhone: {
		tags: "notblank,phone",
		messages: map[string]string{
			"notblank": "El teléfono es requerido",
			"phone":    "Formato de teléfono inválido",
		},
	},
	FieldEmail: {
		tags: "notblank,emailshape",
		messages: map[string]string{
			"notblank":   "El email es requerido",
			"emailshape": "Formato de email inválido",
		},
	},
	FieldPetName: {
		tags: "notblank,min=2,max=50",
		messages: map[string]string{
			"notblank": "El nombre de la mascota es requerido",
			"min":      "El nombre debe tener al menos 2 caracteres",
			"max":      "El nombre no puede exceder 50 caracteres",
		},
	},
	FieldBreed: {
		tags: "notblank,min=2",
		messages: map[string]string{
			"notblank": "La raza es requerida",
			"min":      "La raza debe tener al menos 2 caracteres",
		},
	},
	FieldAge: {
		tags: "integer,intmin=0,intmax=30",
		messages: map[string]string{
			"integer": "La edad debe ser un número válido",
			"intmin":  "La edad no puede ser negativa",
			"intmax":  "La edad no puede ser mayor a 30 años",
		},
	},
	FieldServiceType: {
		tags: "notblank,servicetype",
		messages: map[string]string{
			"notblank":    "Debe seleccionar un tipo de servicio",
			"servicetype": "Debe seleccionar un tipo de servicio",
		},
	},
	FieldReason: {
		tags: "notblank,min=10,max=300",
		messages: map[string]string{
			"notblank": "El motivo es requerido",
			"min":      "El motivo debe tener al menos 10 caracteres",
			"max":      "El motivo no puede exceder 300 caracteres",
		},
	},
	FieldDate: {
		tags: "required,future",
		messages: map[string]string{
			"required": "La fecha es requerida",
			"future":   "La fecha debe ser futura",
		},
	},
	FieldTime: {
		tags: "notblank,hhmm",
		messages: map[string]string{
			"notblank": "La hora es requerida",
			"hhmm":     "Formato de hora inválido (HH:mm)",
		},
	},
	FieldVeterinarian: {
		tags: "notblank,veterinarian",
		messages: map[string]string{
			"notblank":     "Debe seleccionar un veterinario",
			"veterinarian": "Debe seleccionar un veterinario",
		},
	},
	FieldPriority: {
		tags: "notblank,priority",
		messages: map[string]string{
			"notblank": "Debe seleccionar una prioridad",
			"priority": "Debe seleccionar una prioridad",
		},
	},
}

// Errors maps each failing field to its message.
type Errors map[Field]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[Field(f)]
	}
	return "invalid appointment form: " + strings.Join(parts, "; ")
}

// Form is the raw appointment input exactly as the user typed it.
type Form struct {
	OwnerName       string
	Phone           string
	Email           string
	PetName         string
	Breed           string
	Age             string
	ServiceType     string
	Reason          string
	Date            *time.Time
	Time            string
	Veterinarian    string
	Priority        string
	ReminderEnabled bool
	Notes           string
}

type AppointmentValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewAppointmentValidator builds a validator whose future-date rule compares
// against now. A nil now uses time.Now.
func NewAppointmentValidator(now func() time.Time) *AppointmentValidator {
	if now == nil {
		now = time.Now
	}
	v := &AppointmentValidator{
		validate: validator.New(),
		now:      now,
	}

	v.register("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.register("personname", matches(personNamePattern))
	v.register("phone", matches(phonePattern))
	v.register("emailshape", matches(emailPattern))
	v.register("hhmm", matches(timePattern))
	v.register("integer", func(fl validator.FieldLevel) bool {
		_, ok := intValue(fl)
		return ok
	})
	v.register("intmin", func(fl validator.FieldLevel) bool {
		n, ok := intValue(fl)
		limit, err := strconv.ParseInt(fl.Param(), 10, 64)
		return ok && err == nil && n >= limit
	})
	v.register("intmax", func(fl validator.FieldLevel) bool {
		n, ok := intValue(fl)
		limit, err := strconv.ParseInt(fl.Param(), 10, 64)
		return ok && err == nil && n <= limit
	})
	v.register("future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && t.After(v.now())
	})
	v.register("servicetype", func(fl validator.FieldLevel) bool {
		return entity.ServiceType(fl.Field().String()).IsValid()
	})
	v.register("veterinarian", func(fl validator.FieldLevel) bool {
		return entity.Veterinarian(fl.Field().String()).IsValid()
	})
	v.register("priority", func(fl validator.FieldLevel) bool {
		return entity.Priority(fl.Field().String()).IsValid()
	})

	return v
}

func (v *AppointmentValidator) register(tag string, fn validator.Func) {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Message returns the error message for value in field, or "" when valid.
// Date values are *time.Time or time.Time; every other field takes a string.
func (v *AppointmentValidator) Message(field Field, value interface{}) string {
	r, ok := rules[field]
	if !ok {
		return ""
	}

	err := v.validate.Var(value, r.tags)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := r.messages[verrs[0].Tag()]; ok {
			return msg
		}
	}
	first := strings.SplitN(r.tags, ",", 2)[0]
	return r.messages[strings.SplitN(first, "=", 2)[0]]
}

// IsValid is the predicate paired with Message.
func (v *AppointmentValidator) IsValid(field Field, value interface{}) bool {
	return v.Message(field, value) == ""
}

// ValidateForm checks every field and returns a fresh error map, or nil when
// the form is valid.
func (v *AppointmentValidator) ValidateForm(form Form) Errors {
	values := map[Field]interface{}{
		FieldOwnerName:    form.OwnerName,
		FieldPhone:        form.Phone,
		FieldEmail:        form.Email,
		FieldPetName:      form.PetName,
		FieldBreed:        form.Breed,
		FieldAge:          form.Age,
		FieldServiceType:  form.ServiceType,
		FieldReason:       form.Reason,
		FieldDate:         form.Date,
		FieldTime:         form.Time,
		FieldVeterinarian: form.Veterinarian,
		FieldPriority:     form.Priority,
	}

	errs := Errors{}
	for _, f := range Fields {
		if msg := v.Message(f, values[f]); msg != "" {
			errs[f] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *AppointmentValidator) IsFormValid(form Form) bool {
	return len(v.ValidateForm(form)) == 0
}

// Build validates form and converts it into an appointment record. The
// record is nil whenever errs is non-empty.
func (v *AppointmentValidator) Build(form Form) (*entity.Appointment, Errors) {
	if errs := v.ValidateForm(form); errs != nil {
		return nil, errs
	}

	age, _ := strconv.Atoi(form.Age)
	return &entity.Appointment{
		OwnerName:       form.OwnerName,
		Phone:           form.Phone,
		Email:           form.Email,
		PetName:         form.PetName,
		Breed:           form.Breed,
		PetAge:          age,
		ServiceType:     entity.ParseServiceType(form.ServiceType).Value,
		Reason:          form.Reason,
		Date:            form.Date.UTC(),
		Time:            form.Time,
		Veterinarian:    entity.ParseVeterinarian(form.Veterinarian).Value,
		Priority:        entity.ParsePriority(form.Priority).Value,
		ReminderEnabled: form.ReminderEnabled,
		Notes:           form.Notes,
	}, nil
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func intValue(fl validator.FieldLevel) (int64, bool) {
	field := fl.Field()
	if field.CanInt() {
		return field.Int(), true
	}
	if s, ok := field.Interface().(string); ok {
		n, err := strconv.Atoi(s)
		return int64(n), err == nil
	}
	return 0, false
}
