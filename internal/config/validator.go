package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	oerrors "github.com/opmodel/editions/internal/errors"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Unwrap makes ValidationErrors match oerrors.ErrValidation.
func (e ValidationErrors) Unwrap() error {
	return oerrors.ErrValidation
}

// Validator validates configuration against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator creates a new configuration validator.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(configSchemaCUE, cue.Filename("config.cue"))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if def.Err() != nil {
		return nil, fmt.Errorf("looking up #Config: %w", def.Err())
	}

	return &Validator{ctx: ctx, schema: def}, nil
}

// Validate checks cfg against the schema and the cross-field rules the
// schema cannot express. All problems are reported together, one entry per
// field.
func (v *Validator) Validate(cfg *Config) error {
	var errs ValidationErrors

	val := v.ctx.Encode(cfg)
	if val.Err() != nil {
		return fmt.Errorf("encoding config: %w", val.Err())
	}

	unified := v.schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			errs.add(fieldPath(e.Path()), cueMessage(e))
		}
	}

	if len(cfg.Editions) == 0 {
		errs.add("editions", "at least one edition group is required")
	}

	for gi, g := range cfg.Editions {
		if len(g.Order) == 0 {
			errs.add(fmt.Sprintf("editions.%d.order", gi), "at least one layer is required")
		}
		for ei, e := range g.Order {
			lo, hi := derefOr(e.PickMin, DefaultPick), derefOr(e.PickMax, DefaultPick)
			if lo > hi {
				errs.add(fmt.Sprintf("editions.%d.order.%d", gi, ei),
					fmt.Sprintf("pickMin (%d) must not exceed pickMax (%d)", lo, hi))
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// add records msg for field. Messages for a field already present are
// appended once.
func (e *ValidationErrors) add(field, msg string) {
	msg = strings.TrimSuffix(strings.TrimSpace(msg), ":")
	for i := range *e {
		existing := &(*e)[i]
		if existing.Field != field {
			continue
		}
		if !strings.Contains(existing.Message, msg) {
			existing.Message += "; " + msg
		}
		return
	}
	*e = append(*e, ValidationError{Field: field, Message: msg})
}

// ValidateFile loads and validates the configuration file at path.
func (v *Validator) ValidateFile(path string) (*Config, error) {
	cfg, err := NewLoader().Load(path)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fieldPath joins a CUE error path, dropping the leading definition
// selector so fields read as they are written in the config file.
func fieldPath(path []string) string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	return strings.Join(path, ".")
}

func cueMessage(e cueerrors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}
