package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/accountgate/internal/listing"
)

var errInvalidParam = errors.New("invalid parameter")

type listStub struct {
	total      int64
	countCalls []string
	queries    []ListQuery
	records    []string
}

func (s *listStub) deps() ListDeps[string] {
	return ListDeps[string]{
		Count: func(_ context.Context, search string) (int64, error) {
			s.countCalls = append(s.countCalls, search)
			return s.total, nil
		},
		Query: func(_ context.Context, q ListQuery) ([]string, error) {
			s.queries = append(s.queries, q)
			return s.records, nil
		},
		Errors: ListErrors{
			EngineNotReady:   errNotReady,
			InvalidParameter: errInvalidParam,
			StoreUnavailable: errStore,
		},
	}
}

func TestRunListPageMath(t *testing.T) {
	s := &listStub{total: 25, records: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}}

	res, err := RunList(context.Background(), ListRequest{PageNumber: 1, PageSize: 10}, s.deps())
	if err != nil {
		t.Fatalf("RunList error: %v", err)
	}
	if res.Total != 25 || res.TotalPages != 3 || res.HasPreviousPage || !res.HasNextPage {
		t.Fatalf("unexpected metadata: %+v", res)
	}
	if q := s.queries[0]; q.Skip != 0 || q.Limit != 10 || q.Sort != listing.DefaultSort() {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestRunListUsesUnfilteredCountByDefault(t *testing.T) {
	s := &listStub{total: 50, records: []string{"x", "y"}}

	res, err := RunList(context.Background(), ListRequest{PageNumber: 1, PageSize: 10, Search: "JOHN", RawSort: "name:desc"}, s.deps())
	if err != nil {
		t.Fatalf("RunList error: %v", err)
	}
	if s.countCalls[0] != "" {
		t.Fatalf("expected unfiltered count, got search %q", s.countCalls[0])
	}
	if res.Total != 50 || res.TotalPages != 5 || !res.HasNextPage {
		t.Fatalf("metadata must come from the unfiltered total: %+v", res)
	}
	q := s.queries[0]
	if q.Search != "JOHN" || q.Sort != (listing.Sort{Field: listing.FieldName, Order: listing.Desc}) {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestRunListCountFiltered(t *testing.T) {
	s := &listStub{total: 2}
	deps := s.deps()
	deps.CountFiltered = true

	res, err := RunList(context.Background(), ListRequest{PageNumber: 1, PageSize: 10, Search: "john"}, deps)
	if err != nil {
		t.Fatalf("RunList error: %v", err)
	}
	if s.countCalls[0] != "john" {
		t.Fatalf("expected filtered count, got %q", s.countCalls[0])
	}
	if res.Records == nil {
		t.Fatal("records must be an empty slice, not nil")
	}
}

func TestRunListPastEnd(t *testing.T) {
	s := &listStub{total: 5}

	res, err := RunList(context.Background(), ListRequest{PageNumber: 4, PageSize: 2}, s.deps())
	if err != nil {
		t.Fatalf("RunList error: %v", err)
	}
	if len(res.Records) != 0 || res.TotalPages != 3 || !res.HasPreviousPage || res.HasNextPage {
		t.Fatalf("unexpected past-end page: %+v", res)
	}
	if s.queries[0].Skip != 6 {
		t.Fatalf("expected skip 6, got %d", s.queries[0].Skip)
	}
}

func TestRunListInvalidParameters(t *testing.T) {
	cases := []ListRequest{
		{PageNumber: 1, PageSize: 0},
		{PageNumber: 0, PageSize: 10},
		{PageNumber: 1, PageSize: 10, RawSort: "email"},
		{PageNumber: 1, PageSize: 10, RawSort: "secret:asc"},
		{PageNumber: 1, PageSize: 10, Sort: listing.Sort{Field: "name", Order: "sideways"}},
	}
	for _, req := range cases {
		s := &listStub{}
		if _, err := RunList(context.Background(), req, s.deps()); !errors.Is(err, errInvalidParam) {
			t.Fatalf("%+v: expected invalid parameter, got %v", req, err)
		}
		if len(s.countCalls) != 0 || len(s.queries) != 0 {
			t.Fatalf("%+v: store must not be called for invalid input", req)
		}
	}
}

func TestRunListMaxPageSize(t *testing.T) {
	s := &listStub{}
	deps := s.deps()
	deps.MaxPageSize = 100
	if _, err := RunList(context.Background(), ListRequest{PageNumber: 1, PageSize: 101}, deps); !errors.Is(err, errInvalidParam) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

func TestRunListStoreError(t *testing.T) {
	s := &listStub{}
	deps := s.deps()
	deps.Query = func(context.Context, ListQuery) ([]string, error) {
		return nil, context.Canceled
	}
	_, err := RunList(context.Background(), ListRequest{PageNumber: 1, PageSize: 10}, deps)
	if !errors.Is(err, errStore) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
