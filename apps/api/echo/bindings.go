package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tulia/core"
)

const orderingParam = "ordering"

// Ordering binds `?ordering=-stars,completed_at` to the fields a listing may be ordered by.
type Ordering struct {
	allowed   map[string]bool
	defaults  []core.DBOrdering
	Orderings []core.DBOrdering
}

func NewOrdering(allowed map[string]bool, defaults ...core.DBOrdering) *Ordering {
	return &Ordering{allowed: allowed, defaults: defaults}
}

// Bind keeps allowed fields once each, in query order. Falls back to the defaults when none is left.
func (ord *Ordering) Bind(ctx echo.Context) {
	ord.Orderings = nil
	seen := make(map[string]bool)

	for _, field := range strings.Split(ctx.QueryParam(orderingParam), ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" || !ord.allowed[field] || seen[field] {
			continue
		}
		seen[field] = true
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}

	if len(ord.Orderings) == 0 {
		ord.Orderings = append(ord.Orderings, ord.defaults...)
	}
}
