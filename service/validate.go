package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// MissingFieldsError lists required detail keys that were empty.
type MissingFieldsError struct {
	Type   Type
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("service: %s is missing required fields: %s", e.Type, strings.Join(e.Fields, ", "))
}

// InvalidFieldError reports a non-empty value that fails its format rule.
type InvalidFieldError struct {
	Field string
	Rule  string
	Value string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("service: field %s fails rule %q", e.Field, e.Rule)
}

// Normalize returns a trimmed copy of details restricted to the keys the
// definition knows, with defaults applied to empty optional fields.
func (d Definition) Normalize(details map[string]string) map[string]string {
	out := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		v := strings.TrimSpace(details[f.Key])
		if v == "" {
			v = f.Default
		}
		if v != "" {
			out[f.Key] = v
		}
	}
	return out
}

// Validate checks required fields first, then format rules on the values
// that are present. It returns *MissingFieldsError or *InvalidFieldError.
func (d Definition) Validate(details map[string]string) error {
	var missing []string
	for _, f := range d.Fields {
		if f.Required && strings.TrimSpace(details[f.Key]) == "" {
			missing = append(missing, f.Key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingFieldsError{Type: d.Type, Fields: missing}
	}

	v := getValidator()
	for _, f := range d.Fields {
		value := strings.TrimSpace(details[f.Key])
		if f.Format == "" || value == "" {
			continue
		}
		if err := v.Var(value, f.Format); err != nil {
			return &InvalidFieldError{Field: f.Key, Rule: f.Format, Value: value}
		}
	}
	return nil
}
