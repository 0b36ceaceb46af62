package project

import (
	"strings"
	"unicode/utf8"
)

// Rules are the thresholds used to gate stage completion.
type Rules struct {
	MinFoundationChars    int
	MinFoundationWords    int
	MinPhases             int
	MinActivitiesPerPhase int
	MinMilestones         int
	MinArtifacts          int
	MinCriteria           int
}

// DefaultRules returns the standard completion thresholds.
func DefaultRules() Rules {
	return Rules{
		MinFoundationChars:    12,
		MinFoundationWords:    3,
		MinPhases:             3,
		MinActivitiesPerPhase: 1,
		MinMilestones:         3,
		MinArtifacts:          1,
		MinCriteria:           3,
	}
}

var placeholders = map[string]struct{}{
	"tbd":         {},
	"todo":        {},
	"n/a":         {},
	"na":          {},
	"none":        {},
	"...":         {},
	"-":           {},
	"placeholder": {},
	"untitled":    {},
	"lorem ipsum": {},
}

// IsPlaceholder reports whether s carries no real content.
func IsPlaceholder(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return true
	}
	_, ok := placeholders[strings.Trim(v, ".!")]
	if ok {
		return true
	}
	_, ok = placeholders[v]
	return ok
}

func countSubstantive(items []string) int {
	n := 0
	for _, item := range items {
		if !IsPlaceholder(item) {
			n++
		}
	}
	return n
}

// HasSubstantiveContent reports whether any core field holds real content.
// Title and description are excluded since every project carries a default title.
func (r *Record) HasSubstantiveContent() bool {
	return r.StageHasContent(StageFoundation) ||
		r.StageHasContent(StageStructure) ||
		r.StageHasContent(StageDeliverables)
}

// StageHasContent reports whether the fields edited in stage hold real content.
func (r *Record) StageHasContent(stage Stage) bool {
	switch stage {
	case StageFoundation:
		f := r.Foundation
		return !IsPlaceholder(f.CoreConcept) || !IsPlaceholder(f.DrivingQuestion) || !IsPlaceholder(f.Challenge)
	case StageStructure:
		for _, p := range r.Structure.Phases {
			if !IsPlaceholder(p.Name) || !IsPlaceholder(p.Summary) || !IsPlaceholder(p.Checkpoint) || countSubstantive(p.Activities) > 0 {
				return true
			}
		}
		return false
	case StageDeliverables:
		d := r.Deliverables
		return countSubstantive(d.Milestones)+countSubstantive(d.Artifacts)+countSubstantive(d.Criteria) > 0
	case StageReview:
		return r.HasSubstantiveContent()
	}
	return false
}

// SettleProvisional clears the provisional flag once real content exists. It never sets it back.
func (r *Record) SettleProvisional() {
	if r.Provisional && r.HasSubstantiveContent() {
		r.Provisional = false
	}
}

// CheckConsistency verifies that only stages at or before currentStage have started.
func (r *Record) CheckConsistency() error {
	if !r.CurrentStage.Valid() {
		return ErrUnknownStage
	}
	for _, s := range Stages {
		state := r.StageStatus.Get(s)
		switch {
		case r.CurrentStage.Before(s) && state != StateNotStarted:
			return ErrInconsistentStatus
		case s == r.CurrentStage && state == StateNotStarted:
			return ErrInconsistentStatus
		case s.Before(r.CurrentStage) && state != StateComplete:
			return ErrInconsistentStatus
		}
	}
	return nil
}

// Validate checks whether stage of rec satisfies its completion rules.
// It returns nil when the stage may be completed.
func (rules Rules) Validate(rec *Record, stage Stage) *ValidationError {
	switch stage {
	case StageFoundation:
		return rules.validateFoundation(rec.Foundation)
	case StageStructure:
		return rules.validateStructure(rec.Structure)
	case StageDeliverables:
		return rules.validateDeliverables(rec.Deliverables)
	case StageReview:
		return newValidationError(stage, nil, "review is the final stage")
	}
	return newValidationError(stage, nil, "unknown stage")
}

func (rules Rules) validateFoundation(f Foundation) *ValidationError {
	fields := []struct {
		name  string
		value string
	}{
		{"coreConcept", f.CoreConcept},
		{"drivingQuestion", f.DrivingQuestion},
		{"challenge", f.Challenge},
	}

	var missing, thin []string
	for _, field := range fields {
		switch {
		case IsPlaceholder(field.value):
			missing = append(missing, field.name)
		case !rules.substantial(field.value):
			thin = append(thin, field.name)
		}
	}
	if len(missing) == 0 && len(thin) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+joinFields(missing))
	}
	if len(thin) > 0 {
		parts = append(parts, "needs more detail in "+joinFields(thin))
	}
	return newValidationError(StageFoundation, append(missing, thin...),
		"all three foundation fields are required: %s", strings.Join(parts, "; "))
}

func (rules Rules) substantial(value string) bool {
	v := strings.TrimSpace(value)
	return utf8.RuneCountInString(v) >= rules.MinFoundationChars && len(strings.Fields(v)) >= rules.MinFoundationWords
}

func (rules Rules) validateStructure(s Structure) *ValidationError {
	var phases int
	var thin []string
	for _, p := range s.Phases {
		if IsPlaceholder(p.Name) && countSubstantive(p.Activities) == 0 {
			continue
		}
		phases++
		if countSubstantive(p.Activities) < rules.MinActivitiesPerPhase {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				name = "unnamed phase"
			}
			thin = append(thin, name)
		}
	}
	if phases < rules.MinPhases {
		return newValidationError(StageStructure, []string{FieldPhases},
			"add at least %d phases (currently %d)", rules.MinPhases, phases)
	}
	if len(thin) > 0 {
		return newValidationError(StageStructure, []string{FieldPhases},
			"each phase needs at least %d activity: %s", rules.MinActivitiesPerPhase, joinFields(thin))
	}
	return nil
}

func (rules Rules) validateDeliverables(d Deliverables) *ValidationError {
	checks := []struct {
		field string
		label string
		have  int
		want  int
	}{
		{FieldMilestones, "milestones", countSubstantive(d.Milestones), rules.MinMilestones},
		{FieldArtifacts, "artifacts", countSubstantive(d.Artifacts), rules.MinArtifacts},
		{FieldCriteria, "criteria", countSubstantive(d.Criteria), rules.MinCriteria},
	}

	var fields, parts []string
	for _, c := range checks {
		if c.have < c.want {
			fields = append(fields, c.field)
			parts = append(parts, itoaPair(c.label, c.have, c.want))
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return newValidationError(StageDeliverables, fields, "not enough deliverables: %s", strings.Join(parts, "; "))
}
