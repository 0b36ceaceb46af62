package project

import "slices"

// Field names used by patches, diffs and conflict notices.
const (
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldCoreConcept     = "foundation.coreConcept"
	FieldDrivingQuestion = "foundation.drivingQuestion"
	FieldChallenge       = "foundation.challenge"
	FieldPhases          = "structure.phases"
	FieldMilestones      = "deliverables.milestones"
	FieldArtifacts       = "deliverables.artifacts"
	FieldCriteria        = "deliverables.criteria"
)

// Patch is a partial update. Nil pointers and nil slices leave a field untouched;
// an empty non-nil slice clears it.
type Patch struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	CoreConcept     *string  `json:"coreConcept,omitempty"`
	DrivingQuestion *string  `json:"drivingQuestion,omitempty"`
	Challenge       *string  `json:"challenge,omitempty"`
	Phases          []Phase  `json:"phases,omitempty"`
	Milestones      []string `json:"milestones,omitempty"`
	Artifacts       []string `json:"artifacts,omitempty"`
	Criteria        []string `json:"criteria,omitempty"`
}

// String returns a pointer to v, for building patches.
func String(v string) *string {
	return &v
}

// IsEmpty reports whether the patch touches no field.
func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the fields the patch touches.
func (p Patch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.CoreConcept != nil {
		fields = append(fields, FieldCoreConcept)
	}
	if p.DrivingQuestion != nil {
		fields = append(fields, FieldDrivingQuestion)
	}
	if p.Challenge != nil {
		fields = append(fields, FieldChallenge)
	}
	if p.Phases != nil {
		fields = append(fields, FieldPhases)
	}
	if p.Milestones != nil {
		fields = append(fields, FieldMilestones)
	}
	if p.Artifacts != nil {
		fields = append(fields, FieldArtifacts)
	}
	if p.Criteria != nil {
		fields = append(fields, FieldCriteria)
	}
	return fields
}

// Merge overlays next on p; fields set in next win.
func (p Patch) Merge(next Patch) Patch {
	out := p
	if next.Title != nil {
		out.Title = next.Title
	}
	if next.Description != nil {
		out.Description = next.Description
	}
	if next.CoreConcept != nil {
		out.CoreConcept = next.CoreConcept
	}
	if next.DrivingQuestion != nil {
		out.DrivingQuestion = next.DrivingQuestion
	}
	if next.Challenge != nil {
		out.Challenge = next.Challenge
	}
	if next.Phases != nil {
		out.Phases = clonePhases(next.Phases)
	}
	if next.Milestones != nil {
		out.Milestones = slices.Clone(next.Milestones)
	}
	if next.Artifacts != nil {
		out.Artifacts = slices.Clone(next.Artifacts)
	}
	if next.Criteria != nil {
		out.Criteria = slices.Clone(next.Criteria)
	}
	return out
}

// Without returns a copy of p with the named fields dropped.
func (p Patch) Without(fields ...string) Patch {
	out := p
	for _, f := range fields {
		switch f {
		case FieldTitle:
			out.Title = nil
		case FieldDescription:
			out.Description = nil
		case FieldCoreConcept:
			out.CoreConcept = nil
		case FieldDrivingQuestion:
			out.DrivingQuestion = nil
		case FieldChallenge:
			out.Challenge = nil
		case FieldPhases:
			out.Phases = nil
		case FieldMilestones:
			out.Milestones = nil
		case FieldArtifacts:
			out.Artifacts = nil
		case FieldCriteria:
			out.Criteria = nil
		}
	}
	return out
}

// Apply writes the patch into rec. It never touches stage progress or revision.
func (p Patch) Apply(rec *Record) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.CoreConcept != nil {
		rec.Foundation.CoreConcept = *p.CoreConcept
	}
	if p.DrivingQuestion != nil {
		rec.Foundation.DrivingQuestion = *p.DrivingQuestion
	}
	if p.Challenge != nil {
		rec.Foundation.Challenge = *p.Challenge
	}
	if p.Phases != nil {
		rec.Structure.Phases = clonePhases(p.Phases)
	}
	if p.Milestones != nil {
		rec.Deliverables.Milestones = slices.Clone(p.Milestones)
	}
	if p.Artifacts != nil {
		rec.Deliverables.Artifacts = slices.Clone(p.Artifacts)
	}
	if p.Criteria != nil {
		rec.Deliverables.Criteria = slices.Clone(p.Criteria)
	}
}

// Diff returns the patch that turns base into next. A nil base is treated as an empty record.
func Diff(base, next *Record) Patch {
	if base == nil {
		base = &Record{}
	}
	var p Patch
	if base.Title != next.Title {
		p.Title = String(next.Title)
	}
	if base.Description != next.Description {
		p.Description = String(next.Description)
	}
	if base.Foundation.CoreConcept != next.Foundation.CoreConcept {
		p.CoreConcept = String(next.Foundation.CoreConcept)
	}
	if base.Foundation.DrivingQuestion != next.Foundation.DrivingQuestion {
		p.DrivingQuestion = String(next.Foundation.DrivingQuestion)
	}
	if base.Foundation.Challenge != next.Foundation.Challenge {
		p.Challenge = String(next.Foundation.Challenge)
	}
	if !phasesEqual(base.Structure.Phases, next.Structure.Phases) {
		p.Phases = nonNilPhases(next.Structure.Phases)
	}
	if !slices.Equal(base.Deliverables.Milestones, next.Deliverables.Milestones) {
		p.Milestones = nonNil(next.Deliverables.Milestones)
	}
	if !slices.Equal(base.Deliverables.Artifacts, next.Deliverables.Artifacts) {
		p.Artifacts = nonNil(next.Deliverables.Artifacts)
	}
	if !slices.Equal(base.Deliverables.Criteria, next.Deliverables.Criteria) {
		p.Criteria = nonNil(next.Deliverables.Criteria)
	}
	return p
}

func phasesEqual(a, b []Phase) bool {
	return slices.EqualFunc(a, b, func(x, y Phase) bool {
		return x.Name == y.Name &&
			x.Summary == y.Summary &&
			x.Checkpoint == y.Checkpoint &&
			slices.Equal(x.Activities, y.Activities)
	})
}

func clonePhases(in []Phase) []Phase {
	out := make([]Phase, len(in))
	for i, p := range in {
		p.Activities = slices.Clone(p.Activities)
		out[i] = p
	}
	return out
}

func nonNilPhases(in []Phase) []Phase {
	if in == nil {
		return []Phase{}
	}
	return clonePhases(in)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
