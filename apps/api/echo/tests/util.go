package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	. "github.com/trezcool/tulia/apps/api/echo"
	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/progress"
	"github.com/trezcool/tulia/core/session"
	"github.com/trezcool/tulia/services/classifier"
	"github.com/trezcool/tulia/services/email"
	"github.com/trezcool/tulia/services/monitor"
	inmemcache "github.com/trezcool/tulia/storage/cache/inmem"
	inmemdb "github.com/trezcool/tulia/storage/database/inmem"
	"github.com/trezcool/tulia/tests"
)

type fakePredictor struct {
	pred  classifier.Prediction
	err   error
	image []byte
	audio []byte
}

func (p *fakePredictor) Predict(_ context.Context, image, audio []byte) (classifier.Prediction, error) {
	p.image, p.audio = image, audio
	return p.pred, p.err
}

func (p *fakePredictor) Classify(ctx context.Context, image, audio []byte) (emotion.Result, error) {
	pred, err := p.Predict(ctx, image, audio)
	return emotion.Result{Emotion: pred.Emotion, Confidence: pred.Confidence}, err
}

type env struct {
	app         Server
	childRepo   child.Repository
	progressSvc *progress.Service
	sessionSvc  *session.Service
	manager     *monitor.Manager
	predictor   *fakePredictor
	mailer      *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) env {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger, true)
	validate, translator := core.NewValidator()

	// set up DB & repos
	db := inmemdb.Open()
	childRepo := inmemdb.NewChildRepository(db)

	// set up services
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	avatarSvc := avatar.NewService(inmemdb.NewAvatarRepository(db))
	childSvc := child.NewService(nil, childRepo, avatarSvc)
	progressSvc := progress.NewService(nil, inmemdb.NewProgressRepository(db))
	sessionSvc := session.NewService(nil, inmemdb.NewSessionRepository(db), progressSvc)
	predictor := &fakePredictor{pred: classifier.Prediction{Emotion: "happy", Confidence: 0.9}}
	manager := monitor.NewManager(monitor.Deps{
		Classifier: predictor,
		Resume:     inmemcache.NewResumeStore(emotion.DefaultModulesPerLevel),
		Progress:   progressSvc,
		Sessions:   sessionSvc,
		Parents:    childSvc,
		Mailer:     mailer,
		Logger:     logger,
	}, monitor.Options{Manual: true})
	t.Cleanup(manager.StopAll)

	// set up server
	app := NewServer(
		&Options{TestMode: true, DisableReqLogs: true},
		nil, /* shutdown */
		&Deps{
			Logger:      logger,
			Validate:    validate,
			Translator:  translator,
			ChildSvc:    childSvc,
			AvatarSvc:   avatarSvc,
			ProgressSvc: progressSvc,
			SessionSvc:  sessionSvc,
			Predictor:   predictor,
			Monitor:     manager,
		},
	)
	return env{
		app:         app,
		childRepo:   childRepo,
		progressSvc: progressSvc,
		sessionSvc:  sessionSvc,
		manager:     manager,
		predictor:   predictor,
		mailer:      mailer,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// newMultipartRequest posts files, e.g. {"image": jpeg, "audio": webm}.
func newMultipartRequest(t *testing.T, path string, files map[string][]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, data := range files {
		fw, err := w.CreateFormFile(field, field+".bin")
		if err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
		_, _ = fw.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newMultipartRequest() failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func (e env) do(t *testing.T, method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// jsonDiff returns a unified diff of the indented JSON documents.
func jsonDiff(got, want []byte) string {
	indent := func(b []byte) string {
		var buf bytes.Buffer
		if err := json.Indent(&buf, b, "", "  "); err != nil {
			return string(b)
		}
		return buf.String()
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(indent(want)),
		B:        difflib.SplitLines(indent(got)),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	return diff
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data mismatch:\n%s", jsonDiff(rec.Body.Bytes(), tt.wantData))
	}
}

func runHttpTests(t *testing.T, e env, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data [][]byte
			if tt.body != nil {
				data = append(data, tt.body)
			}
			checkCodeAndData(t, tt, e.do(t, tt.method, tt.path, data...))
		})
	}
}
