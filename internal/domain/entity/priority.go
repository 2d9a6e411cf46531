package entity

import "database/sql/driver"

// Priority is the urgency level of an appointment.
type Priority string

const (
	PriorityHigh    Priority = "ALTA"
	PriorityMedium  Priority = "MEDIA"
	PriorityLow     Priority = "BAJA"
	DefaultPriority          = PriorityMedium
)

var priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

type priorityInfo struct {
	name  string
	color string
}

var priorityInfos = map[Priority]priorityInfo{
	PriorityHigh:   {name: "Alta", color: "#FF6B35"},
	PriorityMedium: {name: "Media", color: "#F7931E"},
	PriorityLow:    {name: "Baja", color: "#6B8E23"},
}

func Priorities() []Priority {
	return append([]Priority(nil), priorities...)
}

func ParsePriority(raw string) Decoded[Priority] {
	return decode(raw, priorities, DefaultPriority)
}

// PriorityFromString decodes raw, falling back to MEDIA.
func PriorityFromString(raw string) Priority {
	return ParsePriority(raw).Value
}

func (p Priority) IsValid() bool {
	_, ok := priorityInfos[p]
	return ok
}

func (p Priority) DisplayName() string {
	return priorityInfos[PriorityFromString(string(p))].name
}

// Color is the hex badge color shown next to the priority.
func (p Priority) Color() string {
	return priorityInfos[PriorityFromString(string(p))].color
}

func (p *Priority) Scan(value interface{}) error {
	raw, err := scanToken(value)
	if err != nil {
		return err
	}
	*p = PriorityFromString(raw)
	return nil
}

func (p Priority) Value() (driver.Value, error) {
	return tokenValue(p)
}
