package listing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for any malformed listing parameter.
var ErrInvalid = errors.New("invalid listing parameter")

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sortable fields.
const (
	FieldEmail     = "email"
	FieldName      = "name"
	FieldID        = "id"
	FieldCreatedAt = "created_at"
)

var fieldAliases = map[string]string{
	FieldEmail:     FieldEmail,
	"identifier":   FieldEmail,
	FieldName:      FieldName,
	FieldID:        FieldID,
	"_id":          FieldID,
	FieldCreatedAt: FieldCreatedAt,
	"createdat":    FieldCreatedAt,
}

// Sort is a validated field and direction pair.
type Sort struct {
	Field string
	Order Order
}

// Descending reports whether results are ordered high to low.
func (s Sort) Descending() bool {
	return s.Order == Desc
}

// String renders s as "field:order".
func (s Sort) String() string {
	return s.Field + ":" + string(s.Order)
}

// DefaultSort orders by email ascending.
func DefaultSort() Sort {
	return Sort{Field: FieldEmail, Order: Asc}
}

// ParseSort parses "field:order". Both parts are required; matching is
// case-insensitive and surrounding whitespace is ignored.
func ParseSort(raw string) (Sort, error) {
	field, order, ok := strings.Cut(raw, ":")
	if !ok {
		return Sort{}, fmt.Errorf("%w: sort %q is not field:order", ErrInvalid, raw)
	}
	return Normalize(Sort{Field: field, Order: Order(order)})
}

// Normalize canonicalizes field aliases and order case, rejecting anything
// outside the allowlist.
func Normalize(s Sort) (Sort, error) {
	field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(s.Field))]
	if !ok {
		return Sort{}, fmt.Errorf("%w: unknown sort field %q", ErrInvalid, s.Field)
	}

	switch order := Order(strings.ToLower(strings.TrimSpace(string(s.Order)))); order {
	case Asc, Desc:
		return Sort{Field: field, Order: order}, nil
	default:
		return Sort{}, fmt.Errorf("%w: unknown sort order %q", ErrInvalid, s.Order)
	}
}
