// Package rules holds the declarative rule tables that decide, per form
// variant, which fields are required, which are required only when a
// condition holds, and which services are offered.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/visibility"
)

// Mode is the requiredness of a single field.
type Mode string

const (
	ModeOptional   Mode = "optional"
	ModeRequired   Mode = "required"
	ModeRequiredIf Mode = "required_if"
)

// Requirement is one rule-table entry.
type Requirement struct {
	Mode      Mode
	Condition string
}

// Required is a shorthand for an unconditional requirement.
func Required() Requirement { return Requirement{Mode: ModeRequired} }

// RequiredIf is a shorthand for a conditional requirement.
func RequiredIf(condition string) Requirement {
	return Requirement{Mode: ModeRequiredIf, Condition: condition}
}

// UnmarshalYAML accepts either a bare mode (`required`) or a mapping
// (`{required_if: 'service == "引越し"'}`).
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		mode := Mode(strings.TrimSpace(node.Value))
		switch mode {
		case ModeOptional, ModeRequired:
			*r = Requirement{Mode: mode}
			return nil
		case "":
			*r = Requirement{Mode: ModeOptional}
			return nil
		}
		return fmt.Errorf("rules: line %d: unknown rule %q", node.Line, node.Value)
	case yaml.MappingNode:
		var raw struct {
			RequiredIf string `yaml:"required_if"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		cond := strings.TrimSpace(raw.RequiredIf)
		if cond == "" {
			return fmt.Errorf("rules: line %d: required_if needs an expression", node.Line)
		}
		*r = RequiredIf(cond)
		return nil
	default:
		return fmt.Errorf("rules: line %d: rule must be a string or mapping", node.Line)
	}
}

// Variant is the rule set of one form variant.
type Variant struct {
	Name        string
	Description string
	Services    []model.Service
	MergePolicy model.MergePolicy
	Rules       map[model.FieldKey]Requirement
}

// Requirement returns the rule for key; fields without a rule are optional.
func (v Variant) Requirement(key model.FieldKey) Requirement {
	if req, ok := v.Rules[key]; ok {
		return req
	}
	return Requirement{Mode: ModeOptional}
}

// Required evaluates the rule for key against the request's current values.
func (v Variant) Required(key model.FieldKey, req model.ContactRequest, eval visibility.Evaluator) (bool, error) {
	rule := v.Requirement(key)
	switch rule.Mode {
	case ModeRequired:
		return true, nil
	case ModeRequiredIf:
		if eval == nil {
			return false, fmt.Errorf("rules: variant %q field %q: no evaluator for condition", v.Name, key)
		}
		ok, err := eval.Eval(rule.Condition, visibility.Context{Values: req.Values()})
		if err != nil {
			return false, fmt.Errorf("rules: variant %q field %q: %w", v.Name, key, err)
		}
		return ok, nil
	default:
		return false, nil
	}
}

// Offers reports whether the variant offers service.
func (v Variant) Offers(service model.Service) bool {
	for _, s := range v.Services {
		if s == service {
			return true
		}
	}
	return false
}

// RequiresAny reports whether any field of group carries a rule other than
// optional.
func (v Variant) RequiresAny(group model.Group) bool {
	for key, rule := range v.Rules {
		if rule.Mode == ModeOptional {
			continue
		}
		if field, ok := model.Lookup(key); ok && field.Group == group {
			return true
		}
	}
	return false
}

// Table is the set of variants parsed from rule files. Treat it as immutable
// after construction.
type Table struct {
	defaultName string
	variants    map[string]Variant
}

// Variant returns the named variant; an empty name selects the default.
func (t *Table) Variant(name string) (Variant, bool) {
	if t == nil {
		return Variant{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = t.defaultName
	}
	v, ok := t.variants[name]
	return v, ok
}

// DefaultName returns the name of the default variant.
func (t *Table) DefaultName() string {
	if t == nil {
		return ""
	}
	return t.defaultName
}

// Names lists the variant names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.variants))
	for name := range t.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
