package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/tulia/apps/api/echo"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/session"
	"github.com/trezcool/tulia/services/classifier"
	"github.com/trezcool/tulia/tests"
)

func Test_monitorApi_roundTrip(t *testing.T) {
	e := setup(t)
	chld := testutil.CreateChild(t, e.childRepo, "Amani", 9, 2)
	testutil.CreateParent(t, e.childRepo, chld.ID, "Neema", "neema@test.cd")
	path := "/v1/children/" + chld.ID + "/monitor"

	notRunning := marchallObj(t, httpErr{Error: "monitoring session not found"})
	runHttpTests(t, e, []httpTest{
		{name: "not started", method: http.MethodGet, path: path, wantCode: http.StatusNotFound, wantData: notRunning},
		{name: "unknown child", method: http.MethodPost, path: "/v1/children/nope/monitor", wantCode: http.StatusNotFound},
		{name: "no resume yet", method: http.MethodGet, path: path + "/resume", wantCode: http.StatusNoContent},
		{name: "bad level", method: http.MethodPost, path: path, body: []byte(`{"level":5}`), wantCode: http.StatusBadRequest},
	})

	// start on the child's current level
	rec := e.do(t, http.MethodPost, path, []byte(`{}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var state MonitorState
	unmarshal(t, rec, &state)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, emotion.ModeLearning, state.Mode)

	rec = e.do(t, http.MethodPut, path+"/module", []byte(`{"module_id":4}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &state)
	assert.Equal(t, 4, state.ActiveModule)
	lvl, err := e.progressSvc.GetState(context.Background(), chld.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, lvl.LastPlayedGame)
	assert.Equal(t, 4, *lvl.LastPlayedGame)

	for _, body := range []string{`{"module_id":7}`, `{"module_id":-1}`} {
		rec = e.do(t, http.MethodPut, path+"/module", []byte(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	// the sampler sees sad frames
	e.predictor.pred = classifier.Prediction{Emotion: "sad", Confidence: 0.8}
	sess, err := e.manager.Get(chld.ID)
	require.NoError(t, err)
	for i := 0; i < emotion.DecisionWindow; i++ {
		req, rec := newMultipartRequest(t, path+"/frame", map[string][]byte{"image": []byte("jpeg")})
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		require.True(t, sess.Tick(context.Background()))
	}

	rec = e.do(t, http.MethodGet, path)
	unmarshal(t, rec, &state)
	assert.Equal(t, emotion.ModeCalming, state.Mode)
	assert.Equal(t, 4, state.PendingModule)

	rec = e.do(t, http.MethodPost, path+"/calming-games")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// the calming page reports positive samples, confidence loosely typed
	var resp SampleResponse
	for i, body := range []string{
		`{"emotion":"Happy","confidence":0.9}`,
		`{"emotion":"calm","confidence":"0.8"}`,
		`{"emotion":"neutral","confidence":0.6}`,
	} {
		rec = e.do(t, http.MethodPost, path+"/samples", []byte(body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp = SampleResponse{}
		unmarshal(t, rec, &resp)
		if i < 2 {
			assert.Nil(t, resp.Transition)
		}
	}
	require.NotNil(t, resp.Transition)
	assert.Equal(t, emotion.ModeLearning, resp.Transition.To)
	assert.Equal(t, 4, resp.Transition.Module)
	assert.Equal(t, emotion.ModeLearning, resp.Mode)

	// one-shot resume signal
	runHttpTests(t, e, []httpTest{
		{name: "resume", method: http.MethodGet, path: path + "/resume", wantCode: http.StatusOK, wantData: []byte(`{"fragment":"#module-4","module":4}`)},
		{name: "resume consumed", method: http.MethodGet, path: path + "/resume", wantCode: http.StatusNoContent},
	})

	var episodes []session.CalmingEpisode
	rec = e.do(t, http.MethodGet, "/v1/calming-sessions?child_id="+chld.ID)
	unmarshal(t, rec, &episodes)
	require.Len(t, episodes, 1)
	assert.Equal(t, "sad", episodes[0].EmotionBefore)
	assert.Equal(t, 1, episodes[0].GamesCompleted)
	assert.Equal(t, 4, episodes[0].ResumeModule)
	assert.Len(t, e.mailer.SentMessages(), 1)

	rec = e.do(t, http.MethodDelete, path)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodDelete, path)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_monitorApi_stream(t *testing.T) {
	e := setup(t)
	chld := testutil.CreateChild(t, e.childRepo, "Amani", 9, 1)
	e.manager.Start(chld, 1)

	// no hub configured
	rec := e.do(t, http.MethodGet, "/v1/children/"+chld.ID+"/monitor/ws")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
