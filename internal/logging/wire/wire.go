// Package wire renders records into the newline-delimited bulk body the
// listener accepts.
package wire

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/segmentio/encoding/json"

	"github.com/Chichichkin/LogzioShipper/internal/logging"
)

const unserializableRecord = `{"message":"[unserializable record]"}`

// Encode returns the JSON text of record. It never fails: fields that cannot
// be marshalled are replaced by a lossy string form.
func Encode(record logging.Record) string {
	data, err := json.Marshal(record)
	if err == nil {
		return string(data)
	}

	safe := make(map[string]any, len(record))
	for k, v := range record {
		if _, err := json.Marshal(v); err != nil {
			safe[k] = stringify(v)
			continue
		}
		safe[k] = v
	}

	data, err = json.Marshal(safe)
	if err != nil {
		return unserializableRecord
	}
	return string(data)
}

// Body joins the encoded records, each terminated by '\n'.
func Body(records []logging.Record) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		buf.WriteString(Encode(r))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func stringify(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprint(f)
	case reflect.Complex64, reflect.Complex128, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%v", v)
	default:
		// containers may be cyclic, so they are not walked
		return fmt.Sprintf("[unserializable %T]", v)
	}
}
