package microflow

import (
	"strings"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

var noviceSignals = []string{"no", "none", "new", "fresh", "beginner", "beginners", "little", "scratch", "never"}

// Fallback returns template content built from the narrative alone. The same request
// always yields the same suggestion.
func Fallback(req Request) *Suggestion {
	if req.Kind == KindDeliverables {
		return &Suggestion{
			Kind:         KindDeliverables,
			Source:       SourceFallback,
			Deliverables: fallbackDeliverables(req),
		}
	}
	return &Suggestion{
		Kind:   KindStructure,
		Source: SourceFallback,
		Phases: fallbackPhases(req),
	}
}

func fallbackPhases(req Request) []project.Phase {
	f := req.Narrative.Foundation
	concept := orDefault(f.CoreConcept, orDefault(req.Narrative.Title, "the topic"))
	question := orDefault(f.DrivingQuestion, "the driving question")

	launch := []string{
		"Entry event that frames the driving question: " + question,
		"Know and need-to-know chart",
	}
	if answersMention(req.Answers, noviceSignals) {
		launch = append([]string{"Introduce key vocabulary and background readings"}, launch...)
	}

	createSummary := "Design a response to the challenge and improve it through critique."
	if c := strings.TrimSpace(f.Challenge); c != "" {
		createSummary = "Design a response to the challenge: " + c
	}

	return []project.Phase{
		{
			Name:       "Launch and Explore",
			Summary:    "Spark curiosity about " + concept + " and surface what students already know.",
			Activities: launch,
			Checkpoint: "Students can restate the driving question in their own words.",
		},
		{
			Name:       "Investigate",
			Summary:    "Gather evidence and build understanding of " + concept + ".",
			Activities: []string{"Research in small teams", "Expert interview or field observation"},
			Checkpoint: "Research notes reviewed with feedback.",
		},
		{
			Name:       "Create and Refine",
			Summary:    createSummary,
			Activities: []string{"Draft a first version", "Peer critique using a shared protocol", "Revise based on feedback"},
			Checkpoint: "Revised draft meets the agreed criteria.",
		},
		{
			Name:       "Share and Reflect",
			Summary:    "Present work to an authentic audience and reflect on learning.",
			Activities: []string{"Public presentation or exhibition", "Written reflection on the driving question"},
			Checkpoint: "Final product presented and reflection submitted.",
		},
	}
}

var genericMilestones = []string{
	"Project plan approved",
	"Research findings shared",
	"Prototype ready for critique",
	"Final product presented",
}

func fallbackDeliverables(req Request) project.Deliverables {
	var milestones []string
	for _, p := range req.Narrative.Phases {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		milestones = append(milestones, "End of "+name+": "+orDefault(p.Checkpoint, "checkpoint reviewed"))
	}
	for _, m := range genericMilestones {
		if len(milestones) >= 3 {
			break
		}
		milestones = append(milestones, m)
	}

	artifacts := []string{"Final product that answers the driving question", "Process journal"}
	if answersMention(req.Answers, []string{"present", "presentation", "pitch", "talk"}) {
		artifacts = append(artifacts, "Presentation to an authentic audience")
	}
	if answersMention(req.Answers, []string{"public", "exhibit", "exhibition", "community"}) {
		artifacts = append(artifacts, "Public exhibition display")
	}

	concept := orDefault(req.Narrative.Foundation.CoreConcept, "the core concept")
	return project.Deliverables{
		Milestones: milestones,
		Artifacts:  artifacts,
		Criteria: []string{
			"Depth of understanding of " + concept,
			"Quality of evidence and reasoning",
			"Clarity of communication",
			"Collaboration and use of feedback",
		},
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" || project.IsPlaceholder(v) {
		return def
	}
	return v
}

func answersMention(answers []string, words []string) bool {
	for _, a := range answers {
		for _, w := range strings.FieldsFunc(normalize(a), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r == '\'')
		}) {
			for _, want := range words {
				if w == want {
					return true
				}
			}
		}
	}
	return false
}
