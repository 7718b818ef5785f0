package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Validate checks args against schema. Required fields are checked first in
// declared order and the first missing one is reported; supplied fields are
// then type and enum checked in name order. A nil value counts as absent.
func Validate(schema ParameterSchema, args map[string]interface{}) error {
	for _, name := range schema.Required {
		if v, ok := args[name]; !ok || v == nil {
			return fmt.Errorf("Missing required parameter: %s", name)
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := args[name]
		if value == nil {
			continue
		}
		prop, ok := schema.Properties[name]
		if !ok {
			continue
		}
		if prop.Type != "" && !matchesType(prop.Type, value) {
			return fmt.Errorf("Invalid type for parameter %s: expected %s", name, prop.Type)
		}
		if len(prop.Enum) > 0 && !inEnum(prop.Enum, value) {
			return fmt.Errorf("Invalid value for parameter %s: must be one of %v", name, prop.Enum)
		}
	}

	return nil
}

func matchesType(typ string, value interface{}) bool {
	switch typ {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		_, ok := toFloat(value)
		return ok
	case TypeInteger:
		f, ok := toFloat(value)
		return ok && f == math.Trunc(f)
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		kind := reflect.TypeOf(value).Kind()
		return kind == reflect.Slice || kind == reflect.Array
	case TypeObject:
		rv := reflect.ValueOf(value)
		return rv.Kind() == reflect.Map && !rv.IsNil()
	default:
		return true
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func inEnum(enum []interface{}, value interface{}) bool {
	for _, candidate := range enum {
		if a, ok := toFloat(candidate); ok {
			if b, ok := toFloat(value); ok && a == b {
				return true
			}
			continue
		}
		if reflect.DeepEqual(candidate, value) {
			return true
		}
	}
	return false
}
