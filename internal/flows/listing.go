package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/accountgate/internal/listing"
)

// ListRequest is a validated-on-entry page request. RawSort, when set, takes
// precedence over Sort and must be "field:order".
type ListRequest struct {
	PageNumber int
	PageSize   int
	Search     string
	Sort       listing.Sort
	RawSort    string
}

// ListQuery is what the store is asked for.
type ListQuery struct {
	Search string
	Sort   listing.Sort
	Skip   int64
	Limit  int64
}

// ListResult is one page plus navigation metadata.
type ListResult[T any] struct {
	PageNumber      int
	PageSize        int
	Total           int64
	TotalPages      int64
	HasPreviousPage bool
	HasNextPage     bool
	Records         []T
}

// ListMetrics carries metric ids reported by the listing flow.
type ListMetrics struct {
	Request int
	Invalid int
}

// ListErrors carries the sentinel errors returned by the listing flow.
type ListErrors struct {
	EngineNotReady   error
	InvalidParameter error
	StoreUnavailable error
}

// ListDeps captures the listing engine dependencies.
type ListDeps[T any] struct {
	MaxPageSize int
	// CountFiltered makes the total reflect the search filter instead of the
	// whole collection.
	CountFiltered bool
	Count         func(ctx context.Context, search string) (int64, error)
	Query         func(ctx context.Context, q ListQuery) ([]T, error)
	MetricInc     func(int)
	Metrics       ListMetrics
	Errors        ListErrors
}

// RunList returns one page of records ordered by the requested sort.
func RunList[T any](ctx context.Context, req ListRequest, deps ListDeps[T]) (*ListResult[T], error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noMetric
	}
	if deps.Count == nil || deps.Query == nil {
		return nil, deps.Errors.EngineNotReady
	}
	deps.MetricInc(deps.Metrics.Request)

	window, sort, err := validateList(req, deps.MaxPageSize)
	if err != nil {
		deps.MetricInc(deps.Metrics.Invalid)
		return nil, fmt.Errorf("%w: %v", deps.Errors.InvalidParameter, err)
	}
	search := req.Search

	countSearch := ""
	if deps.CountFiltered {
		countSearch = search
	}
	total, err := deps.Count(ctx, countSearch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", deps.Errors.StoreUnavailable, err)
	}

	records, err := deps.Query(ctx, ListQuery{
		Search: search,
		Sort:   sort,
		Skip:   window.Skip,
		Limit:  window.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", deps.Errors.StoreUnavailable, err)
	}
	if records == nil {
		records = []T{}
	}

	meta := listing.MetaFor(total, req.PageNumber, req.PageSize)
	return &ListResult[T]{
		PageNumber:      req.PageNumber,
		PageSize:        req.PageSize,
		Total:           total,
		TotalPages:      meta.TotalPages,
		HasPreviousPage: meta.HasPreviousPage,
		HasNextPage:     meta.HasNextPage,
		Records:         records,
	}, nil
}

func validateList(req ListRequest, maxPageSize int) (listing.Window, listing.Sort, error) {
	window, err := listing.WindowFor(req.PageNumber, req.PageSize, maxPageSize)
	if err != nil {
		return listing.Window{}, listing.Sort{}, err
	}

	var sort listing.Sort
	switch {
	case req.RawSort != "":
		sort, err = listing.ParseSort(req.RawSort)
	case req.Sort.Field == "" && req.Sort.Order == "":
		sort = listing.DefaultSort()
	default:
		sort, err = listing.Normalize(req.Sort)
	}
	if err != nil {
		return listing.Window{}, listing.Sort{}, err
	}
	return window, sort, nil
}
