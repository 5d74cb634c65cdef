package logging

import (
	"fmt"
	"reflect"

	"github.com/segmentio/encoding/json"
)

// Normalize turns a caller-supplied value into a Record. Extra fields are
// merged over the input and the type is always set to logType.
func Normalize(input any, extraFields map[string]any, logType string) Record {
	record := toRecord(input)

	for k, v := range extraFields {
		record[k] = v
	}
	record[TypeKey] = logType

	return record
}

func toRecord(input any) Record {
	switch v := input.(type) {
	case nil:
		return Record{MessageKey: ""}
	case string:
		return Record{MessageKey: v}
	case []byte:
		return Record{MessageKey: string(v)}
	case Record:
		return copyFields(v)
	case map[string]any:
		return copyFields(v)
	case map[string]string:
		record := make(Record, len(v)+1)
		for k, s := range v {
			record[k] = s
		}
		return record
	case error:
		if isNilPointer(v) {
			return Record{MessageKey: ""}
		}
		return Record{MessageKey: v.Error()}
	case fmt.Stringer:
		if isNilPointer(v) {
			return Record{MessageKey: ""}
		}
		return Record{MessageKey: v.String()}
	}

	// structs and other objects go through their JSON form
	data, err := json.Marshal(input)
	if err == nil {
		var record Record
		if err := json.Unmarshal(data, &record); err == nil && record != nil {
			return record
		}
	}
	return Record{MessageKey: fmt.Sprint(input)}
}

// isNilPointer reports a typed nil inside a non-nil interface, whose
// pointer-receiver methods would dereference nil.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func copyFields(src map[string]any) Record {
	record := make(Record, len(src)+1)
	for k, v := range src {
		record[k] = v
	}
	return record
}
