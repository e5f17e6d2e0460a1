package schema

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError is one problem found in a schema.
type ValidationError struct {
	Path    []string
	Message string
}

func (e ValidationError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Path, "."), e.Message)
}

// ValidationErrors collects every problem of a schema.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks s against the refs of r without building anything.
// It returns nil or ValidationErrors holding all issues found. A nil r
// means DefaultRegistry.
func Validate(s Schema, r *Registry) error {
	if r == nil {
		r = DefaultRegistry()
	}

	var errs ValidationErrors
	add := func(msg string, path ...string) {
		errs = append(errs, ValidationError{Path: path, Message: msg})
	}

	if s.Bus.RetentionBound < 0 {
		add("must not be negative", "bus", "retention_bound")
	}
	if s.Bus.WaitTimeout != "" {
		if d, err := time.ParseDuration(s.Bus.WaitTimeout); err != nil {
			add(fmt.Sprintf("invalid duration %q", s.Bus.WaitTimeout), "bus", "wait_timeout")
		} else if d < 0 {
			add("must not be negative", "bus", "wait_timeout")
		}
	}

	if len(s.Stages) == 0 {
		add("at least one stage is required", "stages")
	}

	seen := make(map[string]int, len(s.Stages))
	for i, st := range s.Stages {
		idx := fmt.Sprintf("stages[%d]", i)

		switch {
		case strings.TrimSpace(st.Ref) == "":
			add("ref is required", idx, "ref")
		default:
			if _, ok := r.Lookup(st.Ref); !ok {
				add(fmt.Sprintf("unknown stage ref '%s'", st.Ref), idx, "ref")
			}
		}

		name := st.StageName()
		if st.Name != "" && strings.TrimSpace(st.Name) == "" {
			add("name must not be blank", idx, "name")
		}
		if strings.TrimSpace(name) == "" {
			continue
		}
		if first, dup := seen[name]; dup {
			add(fmt.Sprintf("duplicate stage name '%s', first used by stages[%d]", name, first), idx, "name")
			continue
		}
		seen[name] = i
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
