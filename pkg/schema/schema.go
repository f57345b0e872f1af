// Package schema validates untyped JSON payloads against a closed set of
// declared string fields and collects every field error in one pass.
package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Check is a field check that needs outside state, e.g. a uniqueness lookup.
// A non-empty problem is reported as a field error; err aborts the load.
type Check func(ctx context.Context, value string) (problem string, err error)

type Field struct {
	Name     string
	Required bool
	// Rules is a go-playground/validator tag applied to the value,
	// e.g. "email,max=128".
	Rules  string
	Checks []Check
}

// Fields holds validated values of the fields present in a payload.
type Fields map[string]string

func (f Fields) Get(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

type Schema struct {
	fields   []Field
	dumpOnly map[string]struct{}
	optional map[string]struct{}
	validate *validator.Validate
}

type Option func(*Schema)

// DumpOnly declares output-only fields. They are dropped from input instead
// of being reported as unknown.
func DumpOnly(names ...string) Option {
	return func(s *Schema) {
		for _, n := range names {
			s.dumpOnly[n] = struct{}{}
		}
	}
}

func New(fields []Field, opts ...Option) *Schema {
	s := &Schema{
		fields:   fields,
		dumpOnly: make(map[string]struct{}),
		optional: make(map[string]struct{}),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Partial returns a copy of the schema where the named fields, or all fields
// when no name is given, are optional. Present fields keep their rules.
func (s *Schema) Partial(names ...string) *Schema {
	cp := &Schema{
		fields:   s.fields,
		dumpOnly: s.dumpOnly,
		optional: make(map[string]struct{}, len(s.fields)),
		validate: s.validate,
	}
	if len(names) == 0 {
		for _, f := range s.fields {
			cp.optional[f.Name] = struct{}{}
		}
		return cp
	}
	for _, n := range names {
		cp.optional[n] = struct{}{}
	}
	return cp
}

// Load decodes body and validates it. See Decode for the empty-body rules.
func (s *Schema) Load(ctx context.Context, body []byte) (Fields, error) {
	payload, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return s.LoadPayload(ctx, payload)
}

// LoadReader reads the whole body from r and loads it. A nil r is an absent
// body.
func (s *Schema) LoadReader(ctx context.Context, r io.Reader) (Fields, error) {
	if r == nil {
		return s.Load(ctx, nil)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableBody, err)
	}
	return s.Load(ctx, body)
}

func (s *Schema) LoadPayload(ctx context.Context, payload Payload) (Fields, error) {
	if len(payload) == 0 {
		return nil, ErrNoInputData
	}

	verr := &ViolationError{}
	s.rejectUnknown(payload, verr)

	out := make(Fields, len(s.fields))
	for _, f := range s.fields {
		raw, present := payload[f.Name]
		if !present {
			if f.Required && !s.isOptional(f.Name) {
				verr.Add(f.Name, MsgRequired)
			}
			continue
		}

		value, ok, err := s.loadField(ctx, f, raw, verr)
		if err != nil {
			return nil, err
		}
		if ok {
			out[f.Name] = value
		}
	}

	if !verr.Empty() {
		return nil, verr
	}
	return out, nil
}

func (s *Schema) loadField(ctx context.Context, f Field, raw any, verr *ViolationError) (string, bool, error) {
	if raw == nil {
		verr.Add(f.Name, MsgNull)
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		verr.Add(f.Name, MsgNotString)
		return "", false, nil
	}

	if f.Rules != "" {
		if err := s.validate.Var(value, f.Rules); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return "", false, fmt.Errorf("validate %s: %w", f.Name, err)
			}
			for _, fe := range fieldErrs {
				verr.Add(f.Name, message(fe))
			}
			return "", false, nil
		}
	}

	valid := true
	for _, check := range f.Checks {
		problem, err := check(ctx, value)
		if err != nil {
			return "", false, fmt.Errorf("check %s: %w", f.Name, err)
		}
		if problem != "" {
			verr.Add(f.Name, problem)
			valid = false
		}
	}
	return value, valid, nil
}

func (s *Schema) rejectUnknown(payload Payload, verr *ViolationError) {
	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if s.declared(name) {
			continue
		}
		if _, ok := s.dumpOnly[name]; ok {
			continue
		}
		verr.Add(name, MsgUnknownField)
	}
}

func (s *Schema) declared(name string) bool {
	for _, f := range s.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (s *Schema) isOptional(name string) bool {
	_, ok := s.optional[name]
	return ok
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "Not a valid email address."
	case "min":
		return fmt.Sprintf("Shorter than minimum length %s.", fe.Param())
	case "max":
		return fmt.Sprintf("Longer than maximum length %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation.", fe.Tag())
	}
}
