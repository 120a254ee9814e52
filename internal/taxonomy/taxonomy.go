// Package taxonomy holds the fixed two-level field / sub-field catalogue
// that every question, group and progress row is filed under.
package taxonomy

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var fieldsYAML []byte

type Field struct {
	Name      string   `yaml:"name" json:"name"`
	SubFields []string `yaml:"sub_fields" json:"sub_fields"`
}

type Taxonomy struct {
	fields []Field
	index  map[string]map[string]struct{}
}

// Parse builds a taxonomy from a YAML document. Duplicate fields or
// sub-fields are rejected.
func Parse(doc []byte) (*Taxonomy, error) {
	var raw struct {
		Fields []Field `yaml:"fields"`
	}
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(raw.Fields) == 0 {
		return nil, fmt.Errorf("taxonomy has no fields")
	}

	t := &Taxonomy{fields: raw.Fields, index: make(map[string]map[string]struct{}, len(raw.Fields))}
	for _, f := range raw.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("taxonomy field without a name")
		}
		if _, dup := t.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		subs := make(map[string]struct{}, len(f.SubFields))
		for _, s := range f.SubFields {
			if _, dup := subs[s]; dup {
				return nil, fmt.Errorf("duplicate sub-field %q in %q", s, f.Name)
			}
			subs[s] = struct{}{}
		}
		t.index[f.Name] = subs
	}
	return t, nil
}

// Default returns the embedded catalogue. It panics if the embedded file is
// malformed, which is a build defect.
func Default() *Taxonomy {
	t, err := Parse(fieldsYAML)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Taxonomy) All() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

func (t *Taxonomy) Valid(field, subField string) bool {
	subs, ok := t.index[field]
	if !ok {
		return false
	}
	_, ok = subs[subField]
	return ok
}

func (t *Taxonomy) SubFields(field string) ([]string, bool) {
	for _, f := range t.fields {
		if f.Name == field {
			return append([]string(nil), f.SubFields...), true
		}
	}
	return nil, false
}
