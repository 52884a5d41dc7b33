package content

import "strings"

// Kind is the content type selected by an item id prefix.
type Kind string

const (
	KindVideo      Kind = "video"
	KindHTML       Kind = "html"
	KindActivity   Kind = "activity"
	KindResources  Kind = "resources"
	KindEvaluation Kind = "evaluation"
	KindUnknown    Kind = ""
)

type prefixRule struct {
	prefix string
	kind   Kind
	file   string
}

var prefixRules = []prefixRule{
	{"intro", KindVideo, "intro.mp4"},
	{"contenido", KindHTML, "contenido.html"},
	{"actividad", KindActivity, "actividad.json"},
	{"recursos", KindResources, "recursos.json"},
	{"evaluacion", KindEvaluation, "evaluacion.json"},
}

// KindOf returns the content kind for itemID, or KindUnknown.
func KindOf(itemID string) Kind {
	if r, ok := ruleFor(itemID); ok {
		return r.kind
	}
	return KindUnknown
}

// IsEvaluationItem reports whether itemID names a graded quiz item.
// Such items are completed only by submitting the evaluation.
func IsEvaluationItem(itemID string) bool {
	return KindOf(itemID) == KindEvaluation
}

func ruleFor(itemID string) (prefixRule, bool) {
	for _, r := range prefixRules {
		if strings.HasPrefix(itemID, r.prefix) {
			return r, true
		}
	}
	return prefixRule{}, false
}
