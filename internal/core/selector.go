package core

import (
	"math/rand"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	NoDataMessage  = "No information provided."
	NoMatchMessage = "Failed to generate description with the provided information."
)

type Outcome string

const (
	OutcomeSelected Outcome = "selected"
	OutcomeNoData   Outcome = "no_data"
	OutcomeNoMatch  Outcome = "no_match"
)

type Request struct {
	Fields FieldSet
	// Every name listed here must be a parameter of the chosen template.
	Required []string
}

type Result struct {
	Outcome Outcome
	Text    string
	Used    []string
	Ignore  []string

	Template   *Template
	Candidates int
}

type candidate struct {
	tmpl   *Template
	weight int
}

// Selector picks one template per request with probability proportional to
// the square of its placeholder count. It is safe for concurrent use.
type Selector struct {
	vocab FieldNames

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector uses src for every draw; a nil src seeds from the clock.
func NewSelector(vocab FieldNames, src rand.Source) *Selector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Selector{vocab: vocab, rng: rand.New(src)}
}

func (s *Selector) Vocabulary() FieldNames {
	return s.vocab
}

func (s *Selector) Select(bank []Template, req Request) (Result, error) {
	available := req.Fields.Present()
	if len(available) == 0 {
		return Result{Outcome: OutcomeNoData, Text: NoDataMessage, Used: []string{}, Ignore: []string{}}, nil
	}

	candidates := eligible(bank, available, normalizeRequired(req.Required))
	if len(candidates) == 0 {
		return Result{Outcome: OutcomeNoMatch, Text: NoMatchMessage, Used: []string{}, Ignore: sortedKeys(available)}, nil
	}

	chosen := s.draw(candidates)

	text, err := chosen.Render(available)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Outcome:    OutcomeSelected,
		Text:       text,
		Used:       append([]string{}, chosen.Params...),
		Ignore:     s.ignored(chosen.Params),
		Template:   chosen,
		Candidates: len(candidates),
	}, nil
}

func eligible(bank []Template, available map[string]string, required []string) []candidate {
	var candidates []candidate
	for i := range bank {
		tmpl := &bank[i]

		satisfiable := true
		for _, param := range tmpl.Params {
			if _, ok := available[param]; !ok {
				satisfiable = false
				break
			}
		}
		if !satisfiable {
			continue
		}

		if !containsAll(tmpl.Params, required) {
			continue
		}

		candidates = append(candidates, candidate{tmpl: tmpl, weight: tmpl.Weight()})
	}
	return candidates
}

// draw falls back to a uniform pick when every candidate has zero weight,
// which only happens when all of them have no placeholders.
func (s *Selector) draw(candidates []candidate) *Template {
	total := 0
	for _, c := range candidates {
		total += c.weight
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if total == 0 {
		return candidates[s.rng.Intn(len(candidates))].tmpl
	}

	r := s.rng.Intn(total)
	for _, c := range candidates {
		if r < c.weight {
			return c.tmpl
		}
		r -= c.weight
	}

	return candidates[len(candidates)-1].tmpl
}

// ignored lists the vocabulary fields the response did not use.
func (s *Selector) ignored(used []string) []string {
	ignore := []string{}
	for _, name := range s.vocab.Names() {
		if slices.Contains(used, name) || slices.Contains(ReservedWords, name) {
			continue
		}
		ignore = append(ignore, name)
	}
	sort.Strings(ignore)
	return ignore
}

func normalizeRequired(required []string) []string {
	var out []string
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func containsAll(params, required []string) bool {
	for _, name := range required {
		if !slices.Contains(params, name) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
