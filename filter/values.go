package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// parseValue converts a raw query value into the argument handed to the
// database driver for the given value kind.
func parseValue(kind ValueKind, raw string) (interface{}, error) {
	switch kind {
	case ValueNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s'", raw)
		}
		return d, nil

	case ValueBool:
		return parseBool(raw)

	case ValueDate:
		t, err := ParseDateTime(raw)
		if err != nil {
			return nil, err
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location()), nil

	case ValueDateTime:
		t, err := ParseDateTime(raw)
		if err != nil {
			return nil, err
		}
		return TimestampValue{Time: t, Original: raw, Precision: getDatePrecisionFromString(raw)}, nil

	case ValueTime:
		for _, layout := range []string{"15:04:05.999999", "15:04:05", "15:04"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format("15:04:05.999999"), nil
			}
		}
		return nil, fmt.Errorf("invalid time '%s'", raw)

	case ValueDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration '%s'", raw)
		}
		return fmt.Sprintf("%d microseconds", d.Microseconds()), nil

	case ValueUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid '%s'", raw)
		}
		return id, nil

	case ValueRelated:
		if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return intVal, nil
		}
		return raw, nil
	}

	return raw, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean '%s'", raw)
}

// parseValues splits a comma separated raw value for in and range filters.
func parseValues(kind ValueKind, raw string) ([]interface{}, error) {
	parts := strings.Split(raw, ",")
	values := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		v, err := parseValue(kind, strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
