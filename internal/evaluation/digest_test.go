package evaluation_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/diplomado/internal/evaluation"
	"github.com/p-n-ai/diplomado/internal/progress"
	"github.com/p-n-ai/diplomado/internal/quiz"
)

const longAnswer = "Priorizaría la transparencia con el cliente y renegociaría el alcance."

func userProgress(t *testing.T, doc string) progress.UserProgress {
	t.Helper()
	var u progress.UserProgress
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		t.Fatalf("unmarshal progress: %v", err)
	}
	return u
}

func sampleProgress(t *testing.T) progress.UserProgress {
	return userProgress(t, `{"modularProgress":{
		"1":{"evaluacion1":{"score":50,"answers":{"q1":"A"}}},
		"0":{
			"intro0":"completed",
			"evaluacion0":{"score":100,"answers":{"q1":"B","q2":["X","Y"],"q3":"`+longAnswer+`","q4":"corta"}}
		}
	}}`)
}

func TestBuildDigest_SelectsGradedItemsInOrder(t *testing.T) {
	d := evaluation.BuildDigest(sampleProgress(t), nil)

	if len(d.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(d.Items))
	}
	if d.Items[0].ModuleID != "0" || d.Items[0].ItemID != "evaluacion0" {
		t.Errorf("first item = %s/%s, want 0/evaluacion0", d.Items[0].ModuleID, d.Items[0].ItemID)
	}
	if !d.Items[0].Approved || d.Items[1].Approved {
		t.Errorf("approved = %v/%v, want true/false", d.Items[0].Approved, d.Items[1].Approved)
	}
	if d.Items[1].Score != 50 {
		t.Errorf("second score = %v, want 50", d.Items[1].Score)
	}
}

func TestBuildDigest_FreeTextWithoutLookup(t *testing.T) {
	d := evaluation.BuildDigest(sampleProgress(t), nil)

	ft := d.Items[0].FreeText
	if len(ft) != 1 {
		t.Fatalf("FreeText = %+v, want only the long answer", ft)
	}
	if ft[0].QuestionID != "q3" || ft[0].Answer != longAnswer {
		t.Errorf("FreeText[0] = %+v", ft[0])
	}
}

func TestBuildDigest_LookupRestrictsToTextQuestions(t *testing.T) {
	doc := userProgress(t, `{"modularProgress":{"0":{"evaluacion0":{"score":0,"answers":{
		"q1":"`+longAnswer+`",
		"q3":"`+longAnswer+`"
	}}}}}`)
	lookup := func(moduleID string) (quiz.Evaluation, error) {
		return quiz.Evaluation{Questions: []quiz.Question{
			{ID: "q1", Type: quiz.SingleChoice, Options: []string{longAnswer}},
			{ID: "q3", Question: "¿Qué harías?", Type: quiz.Text},
		}}, nil
	}

	ft := evaluation.BuildDigest(doc, lookup).Items[0].FreeText
	if len(ft) != 1 || ft[0].QuestionID != "q3" || ft[0].Question != "¿Qué harías?" {
		t.Fatalf("FreeText = %+v, want only q3", ft)
	}
}

func TestBuildDigest_LookupErrorFallsBack(t *testing.T) {
	lookup := func(string) (quiz.Evaluation, error) { return quiz.Evaluation{}, errors.New("missing") }

	d := evaluation.BuildDigest(sampleProgress(t), lookup)
	if len(d.Items[0].FreeText) != 1 {
		t.Fatalf("FreeText = %+v, want fallback selection", d.Items[0].FreeText)
	}
}

func TestBuildDigest_OnlyCompletions(t *testing.T) {
	doc := userProgress(t, `{"modularProgress":{"0":{"intro0":"completed","contenido0":"completed"}}}`)

	d := evaluation.BuildDigest(doc, nil)
	if !d.Empty() {
		t.Fatalf("Items = %+v, want empty", d.Items)
	}
	if !strings.Contains(d.String(), "no tiene evaluaciones") {
		t.Errorf("String() = %q", d.String())
	}
}

func TestDigest_String(t *testing.T) {
	s := evaluation.BuildDigest(sampleProgress(t), nil).String()

	for _, want := range []string{
		"Módulo 0, evaluacion0: 100.00% (aprobado)",
		"Módulo 1, evaluacion1: 50.00% (no aprobado)",
		longAnswer,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "corta") {
		t.Errorf("short answer should not be quoted:\n%s", s)
	}
}
