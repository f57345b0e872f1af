package schema

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNoInputData    = errors.New("no input data provided")
	ErrUnreadableBody = errors.New("request body could not be read")
)

// SchemaKey holds errors that concern the payload as a whole.
const SchemaKey = "_schema"

const (
	MsgRequired     = "Missing data for required field."
	MsgNull         = "Field may not be null."
	MsgNotString    = "Not a valid string."
	MsgUnknownField = "Unknown field."
	MsgInvalidInput = "Invalid input type."
)

// ViolationError carries every field error found in one payload, keyed by
// field name.
type ViolationError struct {
	Fields map[string][]string
}

func Violation(field, msg string) *ViolationError {
	e := &ViolationError{}
	e.Add(field, msg)
	return e
}

func (e *ViolationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ViolationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ViolationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("schema violation")
	for _, name := range names {
		b.WriteString("; ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields[name], " "))
	}
	return b.String()
}
