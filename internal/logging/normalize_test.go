package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_PlainText(t *testing.T) {
	record := Normalize("hello", nil, "nodejs")

	assert.Equal(t, Record{"message": "hello", "type": "nodejs"}, record)
}

func TestNormalize_TypeAlwaysOverridden(t *testing.T) {
	input := map[string]any{"message": "m", "type": "custom"}
	extra := map[string]any{"type": "from-extra", "env": "prod"}

	record := Normalize(input, extra, "generic")

	assert.Equal(t, "generic", record["type"])
	assert.Equal(t, "prod", record["env"])
	assert.Equal(t, "m", record["message"])
}

func TestNormalize_ExtraFieldsOverrideInput(t *testing.T) {
	record := Normalize(map[string]any{"env": "dev", "user": "u1"}, map[string]any{"env": "prod"}, "generic")

	assert.Equal(t, "prod", record["env"])
	assert.Equal(t, "u1", record["user"])
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	input := map[string]any{"message": "m"}

	_ = Normalize(input, map[string]any{"env": "prod"}, "generic")

	assert.Equal(t, map[string]any{"message": "m"}, input)
}

func TestNormalize_Struct(t *testing.T) {
	type event struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}

	record := Normalize(event{Message: "boom", Code: 7}, nil, "generic")

	assert.Equal(t, "boom", record["message"])
	assert.EqualValues(t, 7, record["code"])
	assert.Equal(t, "generic", record["type"])
}

func TestNormalize_ScalarsAndErrors(t *testing.T) {
	assert.Equal(t, "42", Normalize(42, nil, "generic")["message"])
	assert.Equal(t, "bad thing", Normalize(errors.New("bad thing"), nil, "generic")["message"])
	assert.Equal(t, "raw", Normalize([]byte("raw"), nil, "generic")["message"])
}

type pointerError struct{ msg string }

func (e *pointerError) Error() string { return e.msg }

type pointerStringer struct{ name string }

func (s *pointerStringer) String() string { return s.name }

func TestNormalize_TypedNilDoesNotPanic(t *testing.T) {
	var nilErr *pointerError
	var nilStringer *pointerStringer

	assert.NotPanics(t, func() {
		assert.Equal(t, Record{"message": "", "type": "generic"}, Normalize(nilErr, nil, "generic"))
		assert.Equal(t, Record{"message": "", "type": "generic"}, Normalize(nilStringer, nil, "generic"))
	})
	assert.Equal(t, "set", Normalize(&pointerError{msg: "set"}, nil, "generic")["message"])
}
