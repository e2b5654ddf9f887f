package planner

import (
	"context"
	"strings"

	"ai-fitness-coach/internal/catalog"

	"golang.org/x/sync/errgroup"
)

var restMarkers = []string{"rest", "recovery", "stretch"}

// RetrievedDay is the authoritative workout choice for one day. A nil
// Selected means the day will be a rest day.
type RetrievedDay struct {
	Day      int           `json:"day"`
	Focus    string        `json:"focus"`
	Query    string        `json:"query,omitempty"`
	Selected *catalog.Item `json:"selected"`
}

func isRestFocus(focus string) bool {
	return containsAny(strings.ToLower(focus), restMarkers)
}

// runRetrieval searches every non-rest day. Searches are independent so
// they run concurrently; each result lands in its own slot.
func (p *Planner) runRetrieval(ctx context.Context, sk Skeleton) []RetrievedDay {
	out := make([]RetrievedDay, len(sk.Days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, d := range sk.Days {
		out[i] = RetrievedDay{Day: d.Day, Focus: d.Focus, Query: d.SearchQuery}
		if isRestFocus(d.Focus) {
			continue
		}
		query := d.SearchQuery
		if strings.TrimSpace(query) == "" {
			query = d.Focus
		}

		g.Go(func() error {
			results := p.search.Search(gctx, query, nil, nil)
			for _, r := range results {
				if r.IsPlaceholder() {
					continue
				}
				sel := r
				out[i].Selected = &sel
				break
			}
			if out[i].Selected == nil {
				p.log.Warn("no workout found for day", "day", d.Day, "query", query)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}
