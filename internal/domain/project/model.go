package project

import (
	"slices"
	"time"
)

// Stage is one of the sequential authoring stages of a project.
type Stage string

const (
	StageFoundation   Stage = "foundation"
	StageStructure    Stage = "structure"
	StageDeliverables Stage = "deliverables"
	StageReview       Stage = "review"
)

// Stages lists every stage in authoring order.
var Stages = []Stage{StageFoundation, StageStructure, StageDeliverables, StageReview}

// ParseStage converts a wire value into a Stage.
func ParseStage(value string) (Stage, error) {
	s := Stage(value)
	if !s.Valid() {
		return "", ErrUnknownStage
	}
	return s, nil
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in authoring order, or -1.
func (s Stage) Index() int {
	return slices.Index(Stages, s)
}

// Next returns the stage that follows s.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Stages) {
		return "", false
	}
	return Stages[i+1], true
}

// Before reports whether s comes earlier than other.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

// StageState is the progress of a single stage.
type StageState string

const (
	StateNotStarted StageState = "not_started"
	StateInProgress StageState = "in_progress"
	StateComplete   StageState = "complete"
)

// StageStatus maps each stage to its progress.
type StageStatus struct {
	Foundation   StageState `json:"foundation"`
	Structure    StageState `json:"structure"`
	Deliverables StageState `json:"deliverables"`
	Review       StageState `json:"review"`
}

// Get returns the state recorded for stage.
func (s StageStatus) Get(stage Stage) StageState {
	switch stage {
	case StageFoundation:
		return s.Foundation
	case StageStructure:
		return s.Structure
	case StageDeliverables:
		return s.Deliverables
	case StageReview:
		return s.Review
	}
	return ""
}

// Set records state for stage.
func (s *StageStatus) Set(stage Stage, state StageState) {
	switch stage {
	case StageFoundation:
		s.Foundation = state
	case StageStructure:
		s.Structure = state
	case StageDeliverables:
		s.Deliverables = state
	case StageReview:
		s.Review = state
	}
}

// Foundation holds the three free-text anchors of a project.
type Foundation struct {
	CoreConcept     string `json:"coreConcept"`
	DrivingQuestion string `json:"drivingQuestion"`
	Challenge       string `json:"challenge"`
}

// Phase is one step of the learning journey. Order within Structure is significant.
type Phase struct {
	Name       string   `json:"name"`
	Summary    string   `json:"summary"`
	Activities []string `json:"activities"`
	Checkpoint string   `json:"checkpoint"`
}

// Structure is the ordered sequence of phases.
type Structure struct {
	Phases []Phase `json:"phases"`
}

// Deliverables lists what students produce and how it is assessed.
type Deliverables struct {
	Milestones []string `json:"milestones"`
	Artifacts  []string `json:"artifacts"`
	Criteria   []string `json:"criteria"`
}

// Record is the unit of persistence: one per project.
type Record struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	CurrentStage Stage        `json:"currentStage"`
	StageStatus  StageStatus  `json:"stageStatus"`
	Foundation   Foundation   `json:"foundation"`
	Structure    Structure    `json:"structure"`
	Deliverables Deliverables `json:"deliverables"`
	Revision     int64        `json:"revision"`
	Provisional  bool         `json:"provisional"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
}

// DefaultTitle is used when a project is created without a title.
const DefaultTitle = "Untitled Project"

// NewRecord returns an unsaved provisional record positioned at the foundation stage.
func NewRecord(id, title, description string, now time.Time) *Record {
	if title == "" {
		title = DefaultTitle
	}
	return &Record{
		ID:           id,
		Title:        title,
		Description:  description,
		CurrentStage: StageFoundation,
		StageStatus: StageStatus{
			Foundation:   StateInProgress,
			Structure:    StateNotStarted,
			Deliverables: StateNotStarted,
			Review:       StateNotStarted,
		},
		Provisional: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Structure.Phases = make([]Phase, len(r.Structure.Phases))
	for i, p := range r.Structure.Phases {
		p.Activities = slices.Clone(p.Activities)
		c.Structure.Phases[i] = p
	}
	c.Deliverables.Milestones = slices.Clone(r.Deliverables.Milestones)
	c.Deliverables.Artifacts = slices.Clone(r.Deliverables.Artifacts)
	c.Deliverables.Criteria = slices.Clone(r.Deliverables.Criteria)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Summary projects the record onto its metadata index entry.
func (r *Record) Summary() Summary {
	return Summary{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		CurrentStage: r.CurrentStage,
		StageStatus:  r.StageStatus,
		Provisional:  r.Provisional,
		Revision:     r.Revision,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Narrative bundles the content generators may build upon.
func (r *Record) Narrative() Narrative {
	n := Narrative{
		Title:      r.Title,
		Foundation: r.Foundation,
	}
	c := r.Clone()
	n.Phases = c.Structure.Phases
	n.Deliverables = c.Deliverables
	return n
}

// Summary is the metadata index entry maintained alongside each record.
type Summary struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	CurrentStage Stage       `json:"currentStage"`
	StageStatus  StageStatus `json:"stageStatus"`
	Provisional  bool        `json:"provisional"`
	Revision     int64       `json:"revision"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Narrative is the foundation plus any structured content captured in earlier stages.
type Narrative struct {
	Title        string       `json:"title"`
	Foundation   Foundation   `json:"foundation"`
	Phases       []Phase      `json:"phases,omitempty"`
	Deliverables Deliverables `json:"deliverables"`
}

// SyncState is what the local store knows about the last delivery to the remote store.
type SyncState struct {
	Revision int64
	Base     *Record
}
