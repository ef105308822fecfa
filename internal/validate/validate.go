// Package validate turns request bodies into typed inputs. Nothing reaches the
// store until a body has passed through one of the Decode functions.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is returned for any malformed payload. Handlers answer it with 400.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "Invalid data: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// RowID is either a stored row id or the literal "new" for rows that do not
// exist yet.
type RowID struct {
	New   bool
	Value uint
}

func NewRow() RowID { return RowID{New: true} }

func Existing(id uint) RowID { return RowID{Value: id} }

func (id *RowID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte(`"new"`)) {
		*id = RowID{New: true}
		return nil
	}
	var n uint
	if err := json.Unmarshal(b, &n); err != nil || n == 0 {
		return errors.New(`id must be a positive number or "new"`)
	}
	*id = RowID{Value: n}
	return nil
}

func (id RowID) MarshalJSON() ([]byte, error) {
	if id.New {
		return []byte(`"new"`), nil
	}
	return json.Marshal(id.Value)
}

func (id RowID) String() string {
	if id.New {
		return "new"
	}
	return fmt.Sprint(id.Value)
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// decode reads one JSON document from r into dst and runs the struct tags.
func decode(r io.Reader, dst any) error {
	if r == nil {
		return invalid("empty body")
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return describeDecode(err)
	}
	return nil
}

func describeDecode(err error) error {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return invalid("empty body")
	case errors.As(err, &typeErr):
		return invalid("%s must be %s", typeErr.Field, typeErr.Type.String())
	default:
		return invalid("%s", err.Error())
	}
}

func check(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid("%s", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return invalid("%s", strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return field + " must not be empty"
	case "gt":
		return field + " must be a positive number"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
