package microflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// Kind selects which part of the record a micro-flow produces.
type Kind string

const (
	KindStructure    Kind = "structure"
	KindDeliverables Kind = "deliverables"
)

// ParseKind converts a wire value into a Kind.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindStructure, KindDeliverables:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

// Stage returns the authoring stage the kind belongs to.
func (k Kind) Stage() project.Stage {
	if k == KindDeliverables {
		return project.StageDeliverables
	}
	return project.StageStructure
}

// Substep is the position of an engine in its conversation.
type Substep string

const (
	SubstepDiagnostic Substep = "diagnostic"
	SubstepSuggesting Substep = "suggesting"
	SubstepReviewing  Substep = "reviewing"
	SubstepAccepted   Substep = "accepted"
)

// Mode is how suggestions are revealed while reviewing.
type Mode string

const (
	ModeProgressive Mode = "progressive"
	ModeBulk        Mode = "bulk"
)

// SuggestionStatus is polled by the UI to show generation progress.
type SuggestionStatus string

const (
	StatusIdle     SuggestionStatus = "idle"
	StatusRefining SuggestionStatus = "refining"
	StatusEnhanced SuggestionStatus = "enhanced"
	StatusFallback SuggestionStatus = "fallback"
)

// Source records where a suggestion came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Suggestion is structured content awaiting review.
type Suggestion struct {
	Kind         Kind                 `json:"kind"`
	Source       Source               `json:"source"`
	Phases       []project.Phase      `json:"phases,omitempty"`
	Deliverables project.Deliverables `json:"deliverables"`
}

// Patch converts an accepted suggestion into a record update.
func (s *Suggestion) Patch() project.Patch {
	if s.Kind == KindDeliverables {
		return project.Patch{
			Milestones: nonNil(s.Deliverables.Milestones),
			Artifacts:  nonNil(s.Deliverables.Artifacts),
			Criteria:   nonNil(s.Deliverables.Criteria),
		}
	}
	phases := make([]project.Phase, len(s.Phases))
	copy(phases, s.Phases)
	return project.Patch{Phases: phases}
}

// Units splits the suggestion into the pieces reviewed one at a time.
func (s *Suggestion) Units() []Unit {
	if s.Kind == KindDeliverables {
		return []Unit{
			{Label: "Milestones", Items: s.Deliverables.Milestones},
			{Label: "Artifacts", Items: s.Deliverables.Artifacts},
			{Label: "Criteria", Items: s.Deliverables.Criteria},
		}
	}
	units := make([]Unit, len(s.Phases))
	for i := range s.Phases {
		p := s.Phases[i]
		units[i] = Unit{Label: fmt.Sprintf("Phase %d", i+1), Phase: &p}
	}
	return units
}

func (s *Suggestion) valid() bool {
	if s == nil {
		return false
	}
	if s.Kind == KindDeliverables {
		d := s.Deliverables
		return len(d.Milestones)+len(d.Artifacts)+len(d.Criteria) > 0
	}
	return len(s.Phases) > 0
}

// customize replaces unit i with text. Phases take "name: activity; activity";
// deliverable groups take "item; item".
func (s *Suggestion) customize(i int, text string) bool {
	if s.Kind == KindDeliverables {
		items := splitItems(text)
		switch i {
		case 0:
			s.Deliverables.Milestones = items
		case 1:
			s.Deliverables.Artifacts = items
		case 2:
			s.Deliverables.Criteria = items
		default:
			return false
		}
		return true
	}
	if i < 0 || i >= len(s.Phases) {
		return false
	}
	name, rest, ok := strings.Cut(text, ":")
	p := s.Phases[i]
	p.Name = strings.TrimSpace(name)
	if ok {
		if acts := splitItems(rest); len(acts) > 0 {
			p.Activities = acts
		}
	}
	s.Phases[i] = p
	return true
}

func splitItems(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ";") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func (s *Suggestion) clone() *Suggestion {
	if s == nil {
		return nil
	}
	c := *s
	c.Phases = make([]project.Phase, len(s.Phases))
	for i, p := range s.Phases {
		p.Activities = nonNil(p.Activities)
		c.Phases[i] = p
	}
	c.Deliverables = project.Deliverables{
		Milestones: nonNil(s.Deliverables.Milestones),
		Artifacts:  nonNil(s.Deliverables.Artifacts),
		Criteria:   nonNil(s.Deliverables.Criteria),
	}
	return &c
}

// Unit is one reviewable piece of a suggestion.
type Unit struct {
	Label string         `json:"label"`
	Phase *project.Phase `json:"phase,omitempty"`
	Items []string       `json:"items,omitempty"`
}

// Request is what an engine sends to the content generator.
type Request struct {
	Kind      Kind              `json:"kind"`
	Narrative project.Narrative `json:"narrative"`
	Answers   []string          `json:"answers,omitempty"`
}

// Reply is the engine's response to one user turn.
type Reply struct {
	Kind    Kind             `json:"kind"`
	Substep Substep          `json:"substep"`
	Mode    Mode             `json:"mode,omitempty"`
	Status  SuggestionStatus `json:"status"`
	Intent  Intent           `json:"intent,omitempty"`
	Message string           `json:"message"`
	Help    bool             `json:"help,omitempty"`
	Units   []Unit           `json:"units,omitempty"`
	Cursor  int              `json:"cursor"`
	Total   int              `json:"total"`
}

// Generator produces suggestions. Implementations must honour ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Suggestion, error)
}

// Sink is the stage controller write path accepted content goes through.
type Sink interface {
	DebouncedSave(patch project.Patch) error
	CurrentDraft() *project.Record
}

// Tracker receives telemetry events.
type Tracker interface {
	Track(name string, props map[string]any)
}
