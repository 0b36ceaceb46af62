package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

func encodeRecord(rec *project.Record) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(b), nil
}

func decodeRecord(payload string) (*project.Record, error) {
	var rec project.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}

func foundationText(f project.Foundation) string {
	return strings.Join([]string{f.CoreConcept, f.DrivingQuestion, f.Challenge}, "\n")
}

// ftsQuery turns free text into an FTS5 expression of quoted terms joined by AND.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
