package core

import (
	"slices"
	"sort"
	"strings"
)

// FieldSet maps a field name to an optional value. A field only counts as
// present when its value is non-nil and non-empty after trimming.
type FieldSet map[string]*string

func (f FieldSet) Present() map[string]string {
	present := make(map[string]string, len(f))
	for name, value := range f {
		if value == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*value); trimmed != "" {
			present[name] = trimmed
		}
	}
	return present
}

// FieldNames is the vocabulary of fields a template bank can consume.
type FieldNames struct {
	names []string
}

func NewFieldNames(names ...string) FieldNames {
	sorted := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			sorted = append(sorted, name)
		}
	}
	sort.Strings(sorted)
	return FieldNames{names: slices.Compact(sorted)}
}

// VocabularyOf collects every placeholder name used anywhere in the bank.
func VocabularyOf(templates []Template) FieldNames {
	var names []string
	for _, tmpl := range templates {
		names = append(names, tmpl.Params...)
	}
	return NewFieldNames(names...)
}

func (f FieldNames) Names() []string {
	return append([]string{}, f.names...)
}

func (f FieldNames) Contains(name string) bool {
	_, found := slices.BinarySearch(f.names, name)
	return found
}

func (f FieldNames) Len() int {
	return len(f.names)
}
