package registration

import (
	"errors"
	"fmt"
	"html"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Genoux/website/internal/domain"
)

// Field names shared by every schema.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldDiscord = "discord"
	FieldRiotID  = "riot_id"
	FieldRank    = "rank"
)

// ErrUnknownFormType indicates an event whose form type has no schema.
var ErrUnknownFormType = errors.New("registration: unknown form type")

// InputKind tags how a field is rendered and checked.
type InputKind string

const (
	InputText   InputKind = "text"
	InputEmail  InputKind = "email"
	InputSelect InputKind = "select"
)

// Field is one schema entry. Row groups fields rendered side by side.
type Field struct {
	Name      string
	Kind      InputKind
	MinLength int
	Options   []string
	Row       int
}

// Schema is the ordered field list for one form type.
type Schema struct {
	Type   domain.FormType
	Fields []Field
}

// Ranks are the accepted competitive ranks.
var Ranks = []string{"IRON", "BRONZE", "SILVER", "GOLD", "PLATINUM", "DIAMOND"}

func playerFields() []Field {
	return []Field{
		{Name: FieldName, Kind: InputText, MinLength: 2, Row: 0},
		{Name: FieldEmail, Kind: InputEmail, Row: 0},
		{Name: FieldDiscord, Kind: InputText, MinLength: 2, Row: 1},
		{Name: FieldRiotID, Kind: InputText, MinLength: 2, Row: 1},
		{Name: FieldRank, Kind: InputSelect, Options: append([]string(nil), Ranks...), Row: 2},
	}
}

// Schemas maps form types to their schema. It is read-only after construction.
type Schemas struct {
	byType map[domain.FormType]Schema
}

// DefaultSchemas registers the Teamfight Tactics and Summoner's Rift forms.
func DefaultSchemas() *Schemas {
	return NewSchemas(
		Schema{Type: domain.FormTypeTFT, Fields: playerFields()},
		Schema{Type: domain.FormTypeSummoner, Fields: playerFields()},
	)
}

// NewSchemas builds a registry; later duplicates replace earlier ones.
func NewSchemas(list ...Schema) *Schemas {
	s := &Schemas{byType: make(map[domain.FormType]Schema, len(list))}
	for _, schema := range list {
		s.byType[schema.Type] = schema
	}
	return s
}

// Lookup returns the schema for a form type.
func (s *Schemas) Lookup(t domain.FormType) (Schema, error) {
	schema, ok := s.byType[t]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownFormType, t)
	}
	return schema, nil
}

// Supports reports whether a form type is registered.
func (s *Schemas) Supports(t domain.FormType) bool {
	_, ok := s.byType[t]
	return ok
}

// FieldErrors maps field names to a user-facing message.
type FieldErrors map[string]string

// ValidationError is returned when submitted answers fail the schema.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "registration: validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "registration: invalid fields: " + strings.Join(names, ", ")
}

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup and surrounding whitespace from a submitted value.
func Sanitize(raw string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(strings.TrimSpace(raw))))
}

// Validate checks values against the schema and returns the sanitized
// answers for the schema's fields only.
func (s Schema) Validate(values map[string]string, c Copy) (map[string]string, error) {
	clean := make(map[string]string, len(s.Fields))
	problems := FieldErrors{}
	for _, f := range s.Fields {
		value := Sanitize(values[f.Name])
		clean[f.Name] = value
		if msg := f.check(value, c); msg != "" {
			problems[f.Name] = msg
		}
	}
	if len(problems) > 0 {
		return clean, &ValidationError{Fields: problems}
	}
	return clean, nil
}

func (f Field) check(value string, c Copy) string {
	switch f.Kind {
	case InputEmail:
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value || addr.Name != "" {
			return c.InvalidEmail
		}
	case InputSelect:
		for _, opt := range f.Options {
			if opt == value {
				return ""
			}
		}
		return c.InvalidEnum
	}
	if f.MinLength > 0 && utf8.RuneCountInString(value) < f.MinLength {
		return fmt.Sprintf(c.MinLength, c.label(f.Name), f.MinLength)
	}
	return ""
}

func (c Copy) label(name string) string {
	if fc, ok := c.Fields[name]; ok && fc.Label != "" {
		return fc.Label
	}
	return name
}

// Option is a localized select choice.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// FieldView is a field ready for rendering.
type FieldView struct {
	Name        string
	Kind        InputKind
	Label       string
	Placeholder string
	Value       string
	Error       string
	Options     []Option
}

// RowView is a group of fields rendered on one line.
type RowView struct {
	Fields []FieldView
}

// Render localizes the schema and fills in current values and errors.
func (s Schema) Render(c Copy, values map[string]string, errs FieldErrors) []RowView {
	var rows []RowView
	current := -1
	for _, f := range s.Fields {
		fc := c.Fields[f.Name]
		view := FieldView{
			Name:        f.Name,
			Kind:        f.Kind,
			Label:       c.label(f.Name),
			Placeholder: fc.Placeholder,
			Value:       values[f.Name],
			Error:       errs[f.Name],
		}
		for _, opt := range f.Options {
			label := c.Options[opt]
			if label == "" {
				label = opt
			}
			view.Options = append(view.Options, Option{Value: opt, Label: label, Selected: values[f.Name] == opt})
		}
		if f.Row != current || len(rows) == 0 {
			rows = append(rows, RowView{})
			current = f.Row
		}
		rows[len(rows)-1].Fields = append(rows[len(rows)-1].Fields, view)
	}
	return rows
}

// Review lists label/value pairs for the checkout review step in schema order.
func (s Schema) Review(c Copy, values map[string]string) []FieldView {
	out := make([]FieldView, 0, len(s.Fields))
	for _, f := range s.Fields {
		value := values[f.Name]
		if f.Kind == InputSelect {
			if label, ok := c.Options[value]; ok {
				value = label
			}
		}
		out = append(out, FieldView{Name: f.Name, Kind: f.Kind, Label: c.label(f.Name), Value: value})
	}
	return out
}
