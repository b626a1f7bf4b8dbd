package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Field is a named value attached to a log record. Must be produced
// by one of the Field* constructors.
type Field struct {
	f zap.Field
}

// FieldString returns a string Field.
func FieldString(name string, val string) Field {
	return Field{f: zap.String(name, val)}
}

// FieldInt returns a signed integer Field.
func FieldInt(name string, val int64) Field {
	return Field{f: zap.Int64(name, val)}
}

// FieldUint returns an unsigned integer Field.
func FieldUint(name string, val uint64) Field {
	return Field{f: zap.Uint64(name, val)}
}

// FieldFloat returns a floating-point Field.
func FieldFloat(name string, val float64) Field {
	return Field{f: zap.Float64(name, val)}
}

// FieldBool returns a boolean Field.
func FieldBool(name string, val bool) Field {
	return Field{f: zap.Bool(name, val)}
}

// FieldStringer returns a Field carrying the text form of val.
func FieldStringer(name string, val fmt.Stringer) Field {
	return Field{f: zap.Stringer(name, val)}
}

// FieldError returns a Field named "error" with the message of val.
// val must not be nil.
func FieldError(val error) Field {
	return Field{f: zap.String("error", val.Error())}
}
