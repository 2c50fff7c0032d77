package rules

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/visibility/expr"
)

type documentFile struct {
	Default  string                 `yaml:"default"`
	Variants map[string]variantFile `yaml:"variants"`
}

type variantFile struct {
	Description string                 `yaml:"description"`
	Services    []string               `yaml:"services"`
	MergePolicy string                 `yaml:"merge_policy"`
	Rules       map[string]Requirement `yaml:"rules"`
}

// LoadFS walks fsys and parses every YAML rule file. Variants from all files
// are merged; defining the same variant twice is an error.
func LoadFS(fsys fs.FS) (*Table, error) {
	table := &Table{variants: make(map[string]Variant)}
	if fsys == nil {
		return nil, fmt.Errorf("rules: filesystem is nil")
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isRuleFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("rules: read %s: %w", path, err)
		}
		return table.merge(data, path)
	})
	if err != nil {
		return nil, err
	}
	return table.finish()
}

// Load parses a single rule document.
func Load(data []byte) (*Table, error) {
	table := &Table{variants: make(map[string]Variant)}
	if err := table.merge(data, "<inline>"); err != nil {
		return nil, err
	}
	return table.finish()
}

func (t *Table) merge(data []byte, source string) error {
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("rules: file %s is empty", source)
	}
	var doc documentFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("rules: parse %s: %w", source, err)
	}

	if name := strings.TrimSpace(doc.Default); name != "" {
		if t.defaultName != "" && t.defaultName != name {
			return fmt.Errorf("rules: file %s sets default %q, already %q", source, name, t.defaultName)
		}
		t.defaultName = name
	}

	for rawName, raw := range doc.Variants {
		name := strings.TrimSpace(rawName)
		if name == "" {
			return fmt.Errorf("rules: file %s defines a variant with an empty name", source)
		}
		if _, exists := t.variants[name]; exists {
			return fmt.Errorf("rules: duplicate variant %q (file %s)", name, source)
		}
		variant, err := normaliseVariant(name, raw, source)
		if err != nil {
			return err
		}
		t.variants[name] = variant
	}
	return nil
}

func (t *Table) finish() (*Table, error) {
	if len(t.variants) == 0 {
		return nil, fmt.Errorf("rules: no variants defined")
	}
	if t.defaultName == "" {
		if len(t.variants) != 1 {
			return nil, fmt.Errorf("rules: default variant not set")
		}
		for name := range t.variants {
			t.defaultName = name
		}
	}
	if _, ok := t.variants[t.defaultName]; !ok {
		return nil, fmt.Errorf("rules: default variant %q is not defined", t.defaultName)
	}
	return t, nil
}

func normaliseVariant(name string, raw variantFile, source string) (Variant, error) {
	v := Variant{
		Name:        name,
		Description: strings.TrimSpace(raw.Description),
		MergePolicy: model.MergePolicy(strings.TrimSpace(raw.MergePolicy)),
		Rules:       make(map[model.FieldKey]Requirement, len(raw.Rules)),
	}
	if v.MergePolicy == "" {
		v.MergePolicy = model.MergeOverwrite
	}
	if !v.MergePolicy.Valid() {
		return Variant{}, fmt.Errorf("rules: variant %q (file %s): unknown merge policy %q", name, source, raw.MergePolicy)
	}

	seen := make(map[model.Service]struct{}, len(raw.Services))
	for _, s := range raw.Services {
		service := model.Service(strings.TrimSpace(s))
		if service == "" {
			return Variant{}, fmt.Errorf("rules: variant %q (file %s): empty service", name, source)
		}
		if _, dup := seen[service]; dup {
			continue
		}
		seen[service] = struct{}{}
		v.Services = append(v.Services, service)
	}
	if len(v.Services) == 0 {
		return Variant{}, fmt.Errorf("rules: variant %q (file %s) offers no services", name, source)
	}

	for rawKey, rule := range raw.Rules {
		key := model.FieldKey(strings.TrimSpace(rawKey))
		if _, ok := model.Lookup(key); !ok {
			return Variant{}, fmt.Errorf("rules: variant %q (file %s): unknown field %q", name, source, rawKey)
		}
		if rule.Mode == ModeRequiredIf {
			if _, err := expr.Compile(rule.Condition); err != nil {
				return Variant{}, fmt.Errorf("rules: variant %q (file %s) field %q: %w", name, source, key, err)
			}
		}
		v.Rules[key] = rule
	}
	return v, nil
}

func isRuleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
