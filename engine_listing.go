package accountgate

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/accountgate/internal/flows"
	internalmetrics "github.com/MrEthical07/accountgate/internal/metrics"
)

// ListAccounts returns one page of accounts.
//
// Records are filtered by q.Search (case-insensitive substring of the
// identifier or the name), ordered by q.Sort and windowed to
// [(PageNumber-1)*PageSize, PageNumber*PageSize). Page.Count is the number of
// accounts on this page. TotalPages is derived from the size of the whole
// collection unless Listing.CountFiltered is set. Malformed input wraps
// ErrInvalidParameter.
func (e *Engine) ListAccounts(ctx context.Context, q ListQuery) (*Page, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(internalmetrics.ListLatency, start)

	res, err := flows.RunList(ctx, flows.ListRequest{
		PageNumber: q.PageNumber,
		PageSize:   q.PageSize,
		Search:     q.Search,
		Sort:       q.Sort,
		RawSort:    q.SortString,
	}, flows.ListDeps[Account]{
		MaxPageSize:   e.config.Listing.MaxPageSize,
		CountFiltered: e.config.Listing.CountFiltered,
		Count: func(ctx context.Context, search string) (int64, error) {
			return e.records.CountRecords(ctx, RecordFilter{Search: search})
		},
		Query: func(ctx context.Context, lq flows.ListQuery) ([]Account, error) {
			return e.records.QueryRecords(ctx, RecordQuery{
				Filter: RecordFilter{Search: lq.Search},
				Sort:   lq.Sort,
				Skip:   lq.Skip,
				Limit:  lq.Limit,
			})
		},
		MetricInc: e.metricInc,
		Metrics: flows.ListMetrics{
			Request: int(internalmetrics.ListRequest),
			Invalid: int(internalmetrics.ListInvalid),
		},
		Errors: flows.ListErrors{
			EngineNotReady:   ErrEngineNotReady,
			InvalidParameter: ErrInvalidParameter,
			StoreUnavailable: ErrStoreUnavailable,
		},
	})
	if err != nil {
		return nil, err
	}

	return &Page{
		PageNumber:      res.PageNumber,
		PageSize:        res.PageSize,
		Count:           len(res.Records),
		TotalPages:      res.TotalPages,
		HasPreviousPage: res.HasPreviousPage,
		HasNextPage:     res.HasNextPage,
		Data:            res.Records,
	}, nil
}

func invalidParameter(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
}
