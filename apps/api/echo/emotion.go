package echoapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/services/classifier"
)

const (
	maxUploadBytes = 5 << 20
	detectTimeout  = 15 * time.Second
)

var errMissingImage = core.NewValidationError(errors.New("missing image"), core.FieldError{Field: "image", Error: "this field is required"})

// Predictor is the inference service, answering with its full prediction.
type Predictor interface {
	Predict(ctx context.Context, image, audio []byte) (classifier.Prediction, error)
}

type (
	emotionApi struct {
		predictor Predictor
	}

	DetectResponse struct {
		classifier.Prediction
		Action string `json:"action"`
	}
)

func registerEmotionAPI(g *echo.Group, deps *Deps) {
	api := emotionApi{predictor: deps.Predictor}
	g.POST("/emotion/detect", api.detect)
}

// readMedia reads the multipart `image` (required) & `audio` (optional) files.
func readMedia(ctx echo.Context) (image, audio []byte, err error) {
	image, err = readFormFile(ctx, "image")
	if err != nil {
		return nil, nil, err
	}
	if image == nil {
		return nil, nil, errMissingImage
	}
	audio, err = readFormFile(ctx, "audio")
	return image, audio, err
}

func readFormFile(ctx echo.Context, field string) ([]byte, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", field)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", field)
	}
	return data, nil
}

// Handlers

func (api *emotionApi) detect(ctx echo.Context) error {
	image, audio, err := readMedia(ctx)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx.Request().Context(), detectTimeout)
	defer cancel()
	pred, err := api.predictor.Predict(cctx, image, audio)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "emotion inference failed").SetInternal(err)
	}
	return ctx.JSON(http.StatusOK, DetectResponse{
		Prediction: pred,
		Action:     classifier.Action(pred.Emotion, pred.Confidence),
	})
}
