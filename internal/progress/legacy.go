package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/p-n-ai/diplomado/internal/quiz"
)

// DecodeLegacy reads an all-users progress document as exported from the
// browser portal, keyed by whatever user key the export used. Decoding is
// lenient: a missing or malformed modularProgress becomes empty, markers
// other than "completed" are dropped, objects lacking score or answers
// become plain completions and users left empty are omitted.
func DecodeLegacy(data []byte) (map[string]UserProgress, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: legacy progress root: %v", ErrCorrupt, err)
	}

	out := make(map[string]UserProgress, len(root))
	for key, raw := range root {
		u, ok := decodeLegacyUser(raw)
		if !ok || u.Empty() {
			continue
		}
		out[key] = u
	}
	return out, nil
}

func decodeLegacyUser(raw json.RawMessage) (UserProgress, bool) {
	var fields struct {
		Modules         json.RawMessage `json:"modularProgress"`
		FinalAIAnalysis json.RawMessage `json:"finalAIAnalysis"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return UserProgress{}, false
	}

	u := NewUserProgress()
	var modules map[string]json.RawMessage
	if json.Unmarshal(fields.Modules, &modules) == nil {
		for moduleID, rawItems := range modules {
			var items map[string]json.RawMessage
			if json.Unmarshal(rawItems, &items) != nil {
				continue
			}
			for itemID, rawEntry := range items {
				if e, ok := decodeLegacyEntry(rawEntry); ok {
					u.set(moduleID, itemID, e)
				}
			}
		}
	}

	var a struct {
		Analysis         *string         `json:"analysis"`
		GeneratedDilemma string          `json:"generatedDilemma"`
		SubmittedAt      json.RawMessage `json:"submittedAt"`
	}
	if json.Unmarshal(fields.FinalAIAnalysis, &a) == nil && a.Analysis != nil {
		u.FinalAIAnalysis = &FinalAIAnalysis{
			Analysis:         *a.Analysis,
			GeneratedDilemma: a.GeneratedDilemma,
			SubmittedAt:      legacyTime(a.SubmittedAt),
		}
	}
	return u, true
}

// legacyTime reads a timestamp stored either as epoch milliseconds or as
// an RFC 3339 string. Anything else yields the zero time.
func legacyTime(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}
	var millis float64
	if json.Unmarshal(raw, &millis) == nil {
		return time.UnixMilli(int64(millis)).UTC()
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decodeLegacyEntry(raw json.RawMessage) (Entry, bool) {
	var marker string
	if json.Unmarshal(raw, &marker) == nil {
		return Completed(), marker == completedMarker
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil || obj == nil {
		return Entry{}, false
	}

	var score float64
	var rawAnswers map[string]json.RawMessage
	if json.Unmarshal(obj["score"], &score) != nil || json.Unmarshal(obj["answers"], &rawAnswers) != nil || rawAnswers == nil {
		return Completed(), true
	}

	answers := make(map[string]quiz.Answer, len(rawAnswers))
	for id, rawAnswer := range rawAnswers {
		var a quiz.Answer
		if json.Unmarshal(rawAnswer, &a) == nil {
			answers[id] = a
		}
	}
	return Graded(EvaluationResult{Score: score, Answers: answers}), true
}
