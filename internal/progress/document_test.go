package progress

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_JSON(t *testing.T) {
	var doc UserProgress
	err := json.Unmarshal([]byte(`{
		"modularProgress": {
			"0": {"intro-0": "completed", "evaluacion-0": {"score": 66.5, "answers": {"q1": "B", "q2": ["X"]}}},
			"1": {}
		}
	}`), &doc)
	require.NoError(t, err)

	intro, ok := doc.Entry("0", "intro-0")
	require.True(t, ok)
	assert.False(t, intro.IsGraded())

	eval, ok := doc.Entry("0", "evaluacion-0")
	require.True(t, ok)
	r, ok := eval.Result()
	require.True(t, ok)
	assert.Equal(t, 66.5, r.Score)
	assert.NotContains(t, doc.Modules, "1", "empty module maps are pruned on decode")

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"modularProgress":{"0":{"intro-0":"completed","evaluacion-0":{"score":66.5,"answers":{"q1":"B","q2":["X"]}}}}}`, string(out))
}

func TestEntry_StrictDecodeRejectsUnknownShapes(t *testing.T) {
	tests := []string{
		`"pending"`,
		`{"score": 10}`,
		`{"answers": {}}`,
		`42`,
	}
	for _, in := range tests {
		var e Entry
		assert.Error(t, json.Unmarshal([]byte(in), &e), "input %s", in)
	}
}

func TestUserProgress_MissingModulesIsEmptyMap(t *testing.T) {
	var doc UserProgress
	require.NoError(t, json.Unmarshal([]byte(`{"finalAIAnalysis":{"analysis":"a","generatedDilemma":"d","submittedAt":"2026-01-02T03:04:05Z"}}`), &doc))
	assert.NotNil(t, doc.Modules)
	assert.False(t, doc.Empty())
}

func TestMemoryStore_CorruptDocumentClearsStore(t *testing.T) {
	store := NewMemoryStore()
	tr := NewTracker(store)
	ctx := context.Background()

	require.NoError(t, tr.MarkCompleted(ctx, "u1", "0", "intro-0"))
	store.putRaw("u2", []byte(`[1,2,3]`))

	all, err := tr.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	u, err := tr.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.Empty())
}

func TestMemoryStore_GetCorruptUserRecovers(t *testing.T) {
	store := NewMemoryStore()
	tr := NewTracker(store)
	store.putRaw("u1", []byte(`not json`))

	u, err := tr.GetUserProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.Empty())
}

func TestMemoryStore_ReturnedDocumentsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	tr := NewTracker(store)
	ctx := context.Background()
	require.NoError(t, tr.MarkCompleted(ctx, "u1", "0", "intro-0"))

	u, err := tr.GetUserProgress(ctx, "u1")
	require.NoError(t, err)
	u.remove("0", "intro-0")

	done, err := tr.IsCompleted(ctx, "u1", "0", "intro-0")
	require.NoError(t, err)
	assert.True(t, done)
}
