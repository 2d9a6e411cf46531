package entity

import (
	"database/sql/driver"
	"fmt"
)

// Decoded is the result of decoding an enumeration token. Defaulted reports
// that the token was not recognized and Value holds the enumeration default.
type Decoded[T any] struct {
	Value     T
	Defaulted bool
}

func decode[T ~string](raw string, all []T, def T) Decoded[T] {
	for _, v := range all {
		if string(v) == raw {
			return Decoded[T]{Value: v}
		}
	}
	return Decoded[T]{Value: def, Defaulted: true}
}

func scanToken(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported enumeration value type %T", value)
	}
}

func tokenValue[T ~string](v T) (driver.Value, error) {
	return string(v), nil
}
