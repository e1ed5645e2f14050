package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trezcool/tulia/core/emotion"
)

// Actions a single classification maps to.
const (
	ActionCalm   = "calm"
	ActionNormal = "normal"
	ActionStay   = "stay"
)

const maxResponseBytes = 1 << 20

var (
	calmingEmotions = map[string]bool{"fear": true, "sad": true, "angry": true, "stressed": true}
	normalEmotions  = map[string]bool{"happy": true, "calm": true, "neutral": true, "surprise": true}

	ErrInference = errors.New("inference service error")
)

// Prediction is the inference service's answer, parsed permissively.
type Prediction struct {
	Emotion    string             `json:"emotion"`
	Confidence float64            `json:"confidence"`
	Method     string             `json:"method,omitempty"`
	Details    json.RawMessage    `json:"details,omitempty"`
	AllScores  map[string]float64 `json:"all_scores,omitempty"`
}

// Client calls the emotion inference service over HTTP.
type Client struct {
	url  string
	http *http.Client
}

var _ emotion.Classifier = (*Client)(nil)

// NewClient returns a Client posting to url. Timeouts are left to the callers' contexts.
func NewClient(url string, httpClient ...*http.Client) *Client {
	c := &Client{url: url, http: http.DefaultClient}
	if len(httpClient) > 0 && httpClient[0] != nil {
		c.http = httpClient[0]
	}
	return c
}

func (c *Client) Classify(ctx context.Context, image, audio []byte) (emotion.Result, error) {
	pred, err := c.Predict(ctx, image, audio)
	if err != nil {
		return emotion.Result{}, err
	}
	return emotion.Result{Emotion: pred.Emotion, Confidence: pred.Confidence}, nil
}

// Predict posts the frame (and audio, if any) as multipart fields `image` & `audio`.
func (c *Client) Predict(ctx context.Context, image, audio []byte) (Prediction, error) {
	body, contentType, err := encodeForm(image, audio)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "encoding form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "calling inference service")
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return Prediction{}, errors.Wrap(err, "reading inference response")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Prediction{}, errors.Wrapf(ErrInference, "status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	return ParsePrediction(data)
}

func encodeForm(image, audio []byte) (*bytes.Buffer, string, error) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	if err := writeFile(w, "image", "frame.jpg", "image/jpeg", image); err != nil {
		return nil, "", err
	}
	if len(audio) > 0 {
		if err := writeFile(w, "audio", "audio.webm", "audio/webm", audio); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field, filename, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return errors.Wrapf(err, "creating %s part", field)
	}
	_, err = part.Write(data)
	return errors.Wrapf(err, "writing %s part", field)
}

// ParsePrediction reads a payload of the `{emotion, confidence, ...}` shape.
// A missing label is "neutral" & a confidence that is not a number (or numeric string) is 0.
// A payload carrying an `error` is an ErrInference.
func ParsePrediction(data []byte) (Prediction, error) {
	if !gjson.ValidBytes(data) {
		return Prediction{}, errors.Wrap(ErrInference, "invalid JSON payload")
	}
	res := gjson.ParseBytes(data)
	if e := res.Get("error"); e.Exists() && e.Type != gjson.Null {
		return Prediction{}, errors.Wrap(ErrInference, e.String())
	}

	sample := emotion.NewSample(res.Get("emotion").String(), confidence(res.Get("confidence")), time.Time{})
	pred := Prediction{
		Emotion:    sample.Emotion,
		Confidence: sample.Confidence,
		Method:     res.Get("method").String(),
	}
	if details := res.Get("details"); details.Exists() && details.Type != gjson.Null {
		pred.Details = json.RawMessage(details.Raw)
	}
	if scores := res.Get("all_scores"); scores.IsObject() {
		pred.AllScores = make(map[string]float64)
		scores.ForEach(func(key, value gjson.Result) bool {
			pred.AllScores[key.String()] = confidence(value)
			return true
		})
	}
	return pred, nil
}

func confidence(v gjson.Result) float64 {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		return emotion.CoerceConfidence(v.Str)
	default:
		return 0
	}
}

// Action maps one classification to the advice the detect endpoint gives the page.
func Action(label string, confidence float64) string {
	if confidence < emotion.ConfidenceThreshold {
		return ActionStay
	}
	label = strings.ToLower(strings.TrimSpace(label))
	switch {
	case calmingEmotions[label]:
		return ActionCalm
	case normalEmotions[label]:
		return ActionNormal
	default:
		return ActionStay
	}
}
