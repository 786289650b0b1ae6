package kiln

import (
	"fmt"
	"strings"
	"time"
)

// FilterOp enumerates the comparison operators the query engine accepts.
type FilterOp string

// Filter operators.
const (
	OpEq       FilterOp = "eq"
	OpNeq      FilterOp = "neq"
	OpLt       FilterOp = "lt"
	OpLte      FilterOp = "lte"
	OpGt       FilterOp = "gt"
	OpGte      FilterOp = "gte"
	OpContains FilterOp = "contains"
	OpIn       FilterOp = "in"
	OpIsNull   FilterOp = "is_null"
	OpNotNull  FilterOp = "not_null"
)

// Filter is a node in a filter expression tree. The concrete nodes are
// Condition, And and Or.
type Filter interface {
	isFilter()
}

// Condition compares one document key (or builtin metadata column) against
// a literal value.
type Condition struct {
	FieldKey string
	Op       FilterOp
	Value    any
}

// And matches when every child filter matches. An empty And matches
// everything.
type And struct {
	Filters []Filter
}

// Or matches when at least one child filter matches. An empty Or matches
// nothing.
type Or struct {
	Filters []Filter
}

func (Condition) isFilter() {}
func (And) isFilter()       {}
func (Or) isFilter()        {}

// SortClause orders results by one resolvable key.
type SortClause struct {
	FieldKey   string
	Descending bool
}

// DocumentSource selects which of the two documents a query reads.
type DocumentSource string

// Document sources.
const (
	// SourceDraft reads the draft document (always present).
	SourceDraft DocumentSource = "draft"
	// SourcePublished reads the published document; items that have never
	// been published are excluded from results.
	SourcePublished DocumentSource = "published"
)

// Pagination bounds.
const (
	DefaultPageSize = 25
	MaxPageSize     = 1000
)

// FindQuery describes one Find call: a filter tree, sort clauses, and
// offset-based pagination. The zero value lists everything on the first
// page at the default page size.
type FindQuery struct {
	Filter    Filter
	Sort      []SortClause
	PageIndex int
	PageSize  int
	Source    DocumentSource
}

// Normalize clamps pagination to the server bounds and defaults the
// document source. It never errors: a negative page index snaps to zero and
// an out-of-range page size snaps to the default or maximum.
func (q FindQuery) Normalize() FindQuery {
	if q.PageIndex < 0 {
		q.PageIndex = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Source == "" {
		q.Source = SourceDraft
	}
	return q
}

// Builtin metadata columns resolvable in any filter or sort, alongside the
// content type's declared fields.
var builtinColumns = map[string]bool{
	"id":         true,
	"route":      true,
	"created_at": true,
	"updated_at": true,
}

// Validate checks every filter and sort key against the content type's
// declared fields and the builtin metadata columns. An unresolvable key
// fails with ErrInvalidQuery rather than matching nothing.
func (q FindQuery) Validate(ct *ContentType) error {
	if err := validateFilterKeys(ct, q.Filter); err != nil {
		return err
	}
	for _, s := range q.Sort {
		if !resolvableKey(ct, s.FieldKey) {
			return &QueryError{Key: s.FieldKey, Err: fmt.Errorf("unresolvable sort key: %w", ErrInvalidQuery)}
		}
	}
	return nil
}

func validateFilterKeys(ct *ContentType, f Filter) error {
	switch node := f.(type) {
	case nil:
		return nil
	case Condition:
		if !resolvableKey(ct, node.FieldKey) {
			return &QueryError{Key: node.FieldKey, Err: fmt.Errorf("unresolvable filter key: %w", ErrInvalidQuery)}
		}
		switch node.Op {
		case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpContains, OpIn, OpIsNull, OpNotNull:
			return nil
		default:
			return &QueryError{Key: node.FieldKey, Err: fmt.Errorf("unknown operator %q: %w", node.Op, ErrInvalidQuery)}
		}
	case And:
		for _, child := range node.Filters {
			if err := validateFilterKeys(ct, child); err != nil {
				return err
			}
		}
		return nil
	case Or:
		for _, child := range node.Filters {
			if err := validateFilterKeys(ct, child); err != nil {
				return err
			}
		}
		return nil
	default:
		return &QueryError{Err: fmt.Errorf("unknown filter node %T: %w", f, ErrInvalidQuery)}
	}
}

func resolvableKey(ct *ContentType, key string) bool {
	if builtinColumns[key] {
		return true
	}
	_, ok := ct.FieldByDeveloperName(key)
	return ok
}

// MatchesFilter evaluates a validated filter tree against one content item
// in process. Repositories without native JSON predicate support use this
// as their execution path.
func MatchesFilter(item *ContentItem, source DocumentSource, f Filter) bool {
	switch node := f.(type) {
	case nil:
		return true
	case Condition:
		return matchesCondition(item, source, node)
	case And:
		for _, child := range node.Filters {
			if !MatchesFilter(item, source, child) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range node.Filters {
			if MatchesFilter(item, source, child) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchesCondition(item *ContentItem, source DocumentSource, c Condition) bool {
	val, present := resolveFieldValue(item, source, c.FieldKey)

	switch c.Op {
	case OpIsNull:
		return !present || val == nil
	case OpNotNull:
		return present && val != nil
	}
	if !present || val == nil {
		// Missing keys only match the null checks above; neq against a
		// missing key is treated as absent, not different.
		return false
	}

	switch c.Op {
	case OpEq:
		return compareValues(val, c.Value) == 0
	case OpNeq:
		return compareValues(val, c.Value) != 0
	case OpLt:
		return compareValues(val, c.Value) < 0
	case OpLte:
		return compareValues(val, c.Value) <= 0
	case OpGt:
		return compareValues(val, c.Value) > 0
	case OpGte:
		return compareValues(val, c.Value) >= 0
	case OpContains:
		return strings.Contains(strings.ToLower(stringify(val)), strings.ToLower(stringify(c.Value)))
	case OpIn:
		candidates, ok := c.Value.([]any)
		if !ok {
			return false
		}
		for _, cand := range candidates {
			if compareValues(val, cand) == 0 {
				return true
			}
		}
		return false
	}
	return false
}

func resolveFieldValue(item *ContentItem, source DocumentSource, key string) (any, bool) {
	switch key {
	case "id":
		return item.ID.String(), true
	case "route":
		return item.RoutePath, true
	case "created_at":
		return item.CreatedAt, true
	case "updated_at":
		return item.UpdatedAt, true
	}
	doc := item.DraftContent
	if source == SourcePublished {
		doc = item.PublishedContent
	}
	if doc == nil {
		return nil, false
	}
	v, ok := doc.Get(key)
	return v, ok
}

// CompareItems orders two items by one sort clause, for in-process sorting.
// Ties return 0 so callers can chain clauses.
func CompareItems(a, b *ContentItem, source DocumentSource, s SortClause) int {
	av, _ := resolveFieldValue(a, source, s.FieldKey)
	bv, _ := resolveFieldValue(b, source, s.FieldKey)
	cmp := compareValues(av, bv)
	if s.Descending {
		return -cmp
	}
	return cmp
}

// compareValues orders two document values. Timestamps order as instants
// (string bounds parse as RFC 3339), numbers numerically, booleans
// false-before-true, everything else by its string form. Nil sorts before
// any value; values of mismatched types fall back to string order.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if at, aok := asTime(a); aok {
		if bt, bok := asTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ab == bb:
				return 0
			case bb:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

// asTime recognizes timestamp values: builtin columns resolve to time.Time,
// while filter bounds arrive as RFC 3339 strings off the wire.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%v", v)
}

// ProjectedItem is the stable DTO shape Find and FindOne return. Fields
// holds the values for the content type's declared fields in declaration
// order; Extra carries document keys the type does not declare, so older
// or richer documents round-trip without migration.
type ProjectedItem struct {
	ID        string    `json:"id"`
	RoutePath string    `json:"route_path,omitempty"`
	State     ItemState `json:"state"`
	IsDraft   bool      `json:"is_draft"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Fields    *Document `json:"fields"`
	Extra     *Document `json:"extra,omitempty"`
}

// Project maps a content item onto the DTO shape for the chosen source
// document. Declared keys absent from the document are simply omitted.
func Project(ct *ContentType, item *ContentItem, source DocumentSource) *ProjectedItem {
	doc := item.DraftContent
	if source == SourcePublished {
		doc = item.PublishedContent
	}

	fields := NewDocument()
	declared := make(map[string]bool, len(ct.Fields))
	for _, f := range ct.Fields {
		declared[f.DeveloperName] = true
		if doc == nil {
			continue
		}
		if v, ok := doc.Get(f.DeveloperName); ok {
			fields.Set(f.DeveloperName, v)
		}
	}

	var extra *Document
	if doc != nil {
		for _, key := range doc.Keys() {
			if declared[key] {
				continue
			}
			if extra == nil {
				extra = NewDocument()
			}
			v, _ := doc.Get(key)
			extra.Set(key, v)
		}
	}

	return &ProjectedItem{
		ID:        item.ID.String(),
		RoutePath: item.RoutePath,
		State:     item.State(),
		IsDraft:   item.IsDraft(),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
		Fields:    fields,
		Extra:     extra,
	}
}

// Page is one page of projected results plus the paging totals.
type Page struct {
	Items      []*ProjectedItem `json:"items"`
	PageIndex  int              `json:"page_index"`
	PageSize   int              `json:"page_size"`
	TotalCount int              `json:"total_count"`
	TotalPages int              `json:"total_pages"`
}
