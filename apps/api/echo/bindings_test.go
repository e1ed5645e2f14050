package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/progress"
)

func TestOrdering_Bind(t *testing.T) {
	chronological := core.DBOrdering{Field: "completed_at", Ascending: true}
	tests := []struct {
		name  string
		query string
		want  []core.DBOrdering
	}{
		{name: "none", query: "", want: []core.DBOrdering{chronological}},
		{name: "empty", query: "?ordering=", want: []core.DBOrdering{chronological}},
		{name: "only unknown", query: "?ordering=password,-id", want: []core.DBOrdering{chronological}},
		{
			name:  "mixed",
			query: "?ordering=-Stars,%20level%20,bogus,,-",
			want:  []core.DBOrdering{{Field: "stars"}, {Field: "level", Ascending: true}},
		},
		{
			name:  "duplicates keep the first",
			query: "?ordering=score,-score",
			want:  []core.DBOrdering{{Field: "score", Ascending: true}},
		},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/scores"+tt.query, nil)
			ctx := e.NewContext(req, httptest.NewRecorder())

			ord := NewOrdering(progress.ScoreOrderingFields, chronological)
			ord.Bind(ctx)
			assert.Equal(t, tt.want, ord.Orderings)
		})
	}
}
