package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jobtrack/application-tracker/internal/models"
)

// Field enumerates the mutable columns of an application record.
type Field int

const (
	Company Field = iota
	Position
	Source
	Date
	Status
	Automation
	Salary
	Location
	Notes

	numFields
)

var columns = [numFields]string{
	Company:    "company",
	Position:   "position",
	Source:     "source",
	Date:       "date",
	Status:     "status",
	Automation: "automation",
	Salary:     "salary",
	Location:   "location",
	Notes:      "notes",
}

// Fields returns the closed enumeration in column order.
func Fields() []Field {
	out := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		out = append(out, f)
	}
	return out
}

// Column returns the store column (or document attribute) name.
func (f Field) Column() string {
	if f < 0 || f >= numFields {
		return ""
	}
	return columns[f]
}

func (f Field) String() string { return f.Column() }

// FieldPatch pairs a field with its new value. Value is nil for an explicit
// null, a string for text fields, or a float64 for Salary.
type FieldPatch struct {
	Field Field
	Value any
}

// Patch is a sparse set of changes to an application record. The zero value
// is an empty patch.
type Patch struct {
	set    [numFields]bool
	values [numFields]any
}

// Set records a new value for f. Salary values are coerced to float64.
func (p *Patch) Set(f Field, v any) error {
	if f < 0 || f >= numFields {
		return models.Validationf("unknown field %d", int(f))
	}
	if f == Salary {
		n, err := coerceSalary(v)
		if err != nil {
			return err
		}
		v = n
	}
	p.set[f] = true
	p.values[f] = v
	return nil
}

// Has reports whether f was supplied.
func (p Patch) Has(f Field) bool {
	return f >= 0 && f < numFields && p.set[f]
}

// Get returns the supplied value for f.
func (p Patch) Get(f Field) (any, bool) {
	if !p.Has(f) {
		return nil, false
	}
	return p.values[f], true
}

// Empty reports whether no field was supplied.
func (p Patch) Empty() bool {
	for _, ok := range p.set {
		if ok {
			return false
		}
	}
	return true
}

// Changes lists the supplied fields in enumeration order.
func (p Patch) Changes() []FieldPatch {
	var out []FieldPatch
	for f := Field(0); f < numFields; f++ {
		if p.set[f] {
			out = append(out, FieldPatch{Field: f, Value: p.values[f]})
		}
	}
	return out
}

// Decode builds a Patch from a JSON object. Keys outside the enumeration are
// ignored; explicit nulls are kept.
func Decode(data []byte) (Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Patch{}, models.Validationf("invalid JSON body")
	}

	var p Patch
	for f := Field(0); f < numFields; f++ {
		msg, ok := raw[f.Column()]
		if !ok {
			continue
		}
		v, err := decodeValue(f, msg)
		if err != nil {
			return Patch{}, err
		}
		if err := p.Set(f, v); err != nil {
			return Patch{}, err
		}
	}
	return p, nil
}

func decodeValue(f Field, msg json.RawMessage) (any, error) {
	if isNull(msg) {
		return nil, nil
	}
	if f == Salary {
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, models.Validationf("salary: invalid value")
		}
		return v, nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, models.Validationf("%s must be a string", f.Column())
	}
	return s, nil
}

func isNull(msg json.RawMessage) bool {
	return len(msg) == 0 || bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}

// CoerceSalary converts a raw JSON salary value into a non-negative amount.
// Missing, null and empty values become 0.
func CoerceSalary(msg json.RawMessage) (float64, error) {
	if isNull(msg) {
		return 0, nil
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return 0, models.Validationf("salary: invalid value")
	}
	return coerceSalary(v)
}

func coerceSalary(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case nil:
		n = 0
	case float64:
		n = x
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case bool:
		if x {
			n = 1
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, models.Validationf("salary must be numeric, got %q", x)
		}
		n = parsed
	default:
		return 0, models.Validationf("salary must be numeric")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, models.Validationf("salary must be a finite number")
	}
	if n < 0 {
		return 0, models.Validationf("salary must not be negative")
	}
	return n, nil
}

// String renders the patch for logs; values are not included.
func (p Patch) String() string {
	cols := make([]string, 0, numFields)
	for _, c := range p.Changes() {
		cols = append(cols, c.Field.Column())
	}
	return fmt.Sprintf("patch[%s]", strings.Join(cols, ","))
}
