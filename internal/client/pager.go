package client

import (
	"context"
	"fmt"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// unknownTotal asks the pager to take the total from the first page.
const unknownTotal = -1

// page is one listing response. total is unknownTotal when the listing does
// not declare it or when the caller already knows it.
type page struct {
	ids   []string
	total int
}

// pageFunc fetches one listing page.
type pageFunc func(ctx context.Context, limit, offset int) (page, error)

// pager walks a listing endpoint with limit/offset until the declared total
// is reached. The offset is always the number of identifiers collected so far.
type pager struct {
	logger alma.Logger
	label  string
	limit  int
	fetch  pageFunc
}

func newPager(logger alma.Logger, label string, fetch pageFunc) *pager {
	return &pager{
		logger: logger,
		label:  label,
		limit:  constants.PageSize,
		fetch:  fetch,
	}
}

// fetchAll collects every identifier. total is the declared count, or
// unknownTotal to read it from the listing itself. An empty page before the
// total is reached ends the walk with a warning.
func (p *pager) fetchAll(ctx context.Context, total int) ([]string, error) {
	ids := make([]string, 0, max(total, 0))

	for total == unknownTotal || len(ids) < total {
		current, err := p.fetch(ctx, p.limit, len(ids))
		if err != nil {
			return ids, err
		}

		if current.total != unknownTotal {
			total = current.total
		}

		if len(current.ids) == 0 {
			if len(ids) < total {
				p.logger.Warn(fmt.Sprintf("%s: empty page before the declared total was reached", p.label), map[string]interface{}{
					"fetched": len(ids),
					"total":   total,
				})
			}

			break
		}

		ids = append(ids, current.ids...)

		p.logger.Info(fmt.Sprintf("%s: %d / %d records fetched", p.label, len(ids), total), nil)
	}

	return ids, nil
}
