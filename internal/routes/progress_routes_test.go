package routes_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy/internal/models"
	"codebuddy/internal/testutil"
)

func TestRecordProgressAwardsXPOnce(t *testing.T) {
	a := newAPI(t, 0)
	_, questions := testutil.CreateTopic(t, a.db, "arrays", 2)
	userID, token := a.user(t, "s@example.com", models.RoleStudent)
	q := questions[0]

	rr := testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{
		"question_id": q.ID, "status": "attempted", "score": 40,
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := testutil.Decode(t, rr)
	assert.Equal(t, "attempted", body["progress"].(map[string]any)["status"])
	assert.Empty(t, body["new_badges"])

	rr = testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{
		"question_id": q.ID, "status": "solved", "score": 90,
	}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	body = testutil.Decode(t, rr)
	progress := body["progress"].(map[string]any)
	assert.Equal(t, "solved", progress["status"])
	assert.Equal(t, float64(2), progress["attempts"])
	assert.Equal(t, float64(90), progress["score"])
	assert.NotNil(t, progress["solved_at"])

	badges := body["new_badges"].([]any)
	require.Len(t, badges, 1)
	assert.Equal(t, "first-solve", badges[0].(map[string]any)["code"])

	// a later lower-scored attempt neither downgrades nor re-awards
	rr = testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{
		"question_id": q.ID, "status": "attempted", "score": 10,
	}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	body = testutil.Decode(t, rr)
	progress = body["progress"].(map[string]any)
	assert.Equal(t, "solved", progress["status"])
	assert.Equal(t, float64(90), progress["score"])
	assert.Equal(t, float64(3), progress["attempts"])
	assert.Empty(t, body["new_badges"])

	var user models.User
	require.NoError(t, a.db.First(&user, userID).Error)
	assert.Equal(t, 10, user.XP)
}

func TestRecordProgressValidation(t *testing.T) {
	a := newAPI(t, 0)
	_, token := a.user(t, "s@example.com", models.RoleStudent)

	rr := testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{
		"question_id": 999, "status": "solved",
	}, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{
		"question_id": 1, "status": "done",
	}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{"question_id": 1, "status": "solved"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProgressSummary(t *testing.T) {
	a := newAPI(t, 0)
	arrays, arrayQs := testutil.CreateTopic(t, a.db, "arrays", 2)
	graphs, graphQs := testutil.CreateTopic(t, a.db, "graphs", 1)
	_, token := a.user(t, "s@example.com", models.RoleStudent)
	_, other := a.user(t, "o@example.com", models.RoleStudent)

	record := func(tok string, id uint, status string) {
		rr := testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{"question_id": id, "status": status}, tok)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	record(token, arrayQs[0].ID, "solved")
	record(token, arrayQs[1].ID, "attempted")
	record(token, graphQs[0].ID, "solved")
	record(other, arrayQs[1].ID, "solved")

	rr := testutil.Do(t, a.h, http.MethodGet, "/api/progress/summary", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	body := testutil.Decode(t, rr)
	assert.Equal(t, float64(2), body["solved"])
	assert.Equal(t, float64(1), body["attempted"])
	assert.Equal(t, float64(20), body["xp"])
	assert.Equal(t, []any{
		map[string]any{"topic_id": float64(arrays.ID), "solved": float64(1)},
		map[string]any{"topic_id": float64(graphs.ID), "solved": float64(1)},
	}, body["by_topic"])

	rr = testutil.Do(t, a.h, http.MethodGet, "/api/progress", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	entries := testutil.Decode(t, rr)["data"].([]any)
	require.Len(t, entries, 3)
	for _, e := range entries {
		q := e.(map[string]any)["question"].(map[string]any)
		assert.NotContains(t, q, "solution")
	}
}

func TestProgressSummarySkipsDeletedQuestions(t *testing.T) {
	a := newAPI(t, 0)
	arrays, arrayQs := testutil.CreateTopic(t, a.db, "arrays", 1)
	_, graphQs := testutil.CreateTopic(t, a.db, "graphs", 2)
	_, token := a.user(t, "s@example.com", models.RoleStudent)

	for _, id := range []uint{arrayQs[0].ID, graphQs[0].ID} {
		rr := testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{"question_id": id, "status": "solved"}, token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	rr := testutil.Do(t, a.h, http.MethodPost, "/api/progress", map[string]any{"question_id": graphQs[1].ID, "status": "attempted"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NoError(t, a.db.Delete(&models.Question{}, []uint{graphQs[0].ID, graphQs[1].ID}).Error)

	rr = testutil.Do(t, a.h, http.MethodGet, "/api/progress/summary", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	body := testutil.Decode(t, rr)
	assert.Equal(t, float64(1), body["solved"])
	assert.Equal(t, float64(0), body["attempted"])
	assert.Equal(t, []any{
		map[string]any{"topic_id": float64(arrays.ID), "solved": float64(1)},
	}, body["by_topic"])
}
