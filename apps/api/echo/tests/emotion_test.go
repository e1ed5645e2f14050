package tests

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tulia/services/classifier"
)

func Test_emotionApi_detect(t *testing.T) {
	e := setup(t)

	t.Run("with audio", func(t *testing.T) {
		e.predictor.pred = classifier.Prediction{Emotion: "sad", Confidence: 0.7, Method: "fusion"}
		req, rec := newMultipartRequest(t, "/v1/emotion/detect", map[string][]byte{"image": []byte("jpeg"), "audio": []byte("webm")})
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"emotion":"sad","confidence":0.7,"method":"fusion","action":"calm"}`),
		}, rec)
		assert.Equal(t, []byte("jpeg"), e.predictor.image)
		assert.Equal(t, []byte("webm"), e.predictor.audio)
	})

	t.Run("low confidence", func(t *testing.T) {
		e.predictor.pred = classifier.Prediction{Emotion: "happy", Confidence: 0.2}
		req, rec := newMultipartRequest(t, "/v1/emotion/detect", map[string][]byte{"image": []byte("jpeg")})
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"emotion":"happy","confidence":0.2,"action":"stay"}`),
		}, rec)
		assert.Nil(t, e.predictor.audio)
	})

	t.Run("missing image", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/v1/emotion/detect", map[string][]byte{"audio": []byte("webm")})
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"image":"this field is required"}`)}, rec)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/v1/emotion/detect", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inference failure", func(t *testing.T) {
		e.predictor.err = errors.Wrap(classifier.ErrInference, "status 500")
		defer func() { e.predictor.err = nil }()
		req, rec := newMultipartRequest(t, "/v1/emotion/detect", map[string][]byte{"image": []byte("jpeg")})
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, httpErr{Error: "emotion inference failed"}),
		}, rec)
	})
}
