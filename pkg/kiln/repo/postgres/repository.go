// Package postgres provides a kiln.Repository backed by PostgreSQL.
// Documents live in JSONB columns and filter expressions compile to native
// JSONB predicates, so querying never loads a full collection into memory.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kilnhq/kiln/pkg/kiln"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements kiln.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository on an existing connection or
// transaction. Compound operations run sequentially on db; use
// NewWithPool when they must open their own transactions.
func New(db DBTX) kiln.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool.
// Compound operations (revision appends, soft delete, restore) run inside
// transactions opened on the pool.
func NewWithPool(pool *pgxpool.Pool) kiln.Repository {
	return &Repository{db: pool, pool: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: constraint %s: %w", operation, pgErr.ConstraintName, kiln.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: referenced record absent: %w", operation, kiln.ErrNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required column %s is missing", operation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("%s: table does not exist - database migration required", operation)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, kiln.ErrNotFound)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, kiln.ErrTimeout)
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// inTx runs fn inside a transaction when a pool is available, otherwise
// sequentially on the caller-provided connection (assumed to already be a
// transaction when atomicity matters).
func (r *Repository) inTx(ctx context.Context, fn func(db DBTX) error) error {
	if r.pool == nil {
		return fn(r.db)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Document marshalling helpers. Documents are stored as JSONB; a nil
// document maps to SQL NULL, which is how "never published" persists.

func docParam(d *kiln.Document) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return b, nil
}

func docFromBytes(b []byte) (*kiln.Document, error) {
	if b == nil {
		return nil, nil
	}
	var d kiln.Document
	if err := d.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &d, nil
}

// Content item operations

func (r *Repository) CreateContentItem(ctx context.Context, item *kiln.ContentItem) error {
	return r.execContentItemWrite(ctx, r.db, `
		INSERT INTO content_item (
			id, content_type_id, draft_content, published_content,
			route_path, created_by, updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, item, "create content item")
}

func (r *Repository) UpdateContentItem(ctx context.Context, item *kiln.ContentItem) error {
	return r.updateContentItem(ctx, r.db, item)
}

func (r *Repository) updateContentItem(ctx context.Context, db DBTX, item *kiln.ContentItem) error {
	draft, err := docParam(item.DraftContent)
	if err != nil {
		return err
	}
	published, err := docParam(item.PublishedContent)
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx, `
		UPDATE content_item SET
			draft_content = $2, published_content = $3, route_path = $4,
			updated_by = $5, updated_at = $6
		WHERE id = $1`,
		item.ID, draft, published, item.RoutePath, item.UpdatedBy, item.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update content item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("content item %s: %w", item.ID, kiln.ErrNotFound)
	}
	return nil
}

func (r *Repository) execContentItemWrite(ctx context.Context, db DBTX, query string, item *kiln.ContentItem, operation string) error {
	draft, err := docParam(item.DraftContent)
	if err != nil {
		return err
	}
	published, err := docParam(item.PublishedContent)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, query,
		item.ID, item.ContentTypeID, draft, published,
		item.RoutePath, item.CreatedBy, item.UpdatedBy, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return r.handlePostgresError(operation, err)
	}
	return nil
}

func (r *Repository) GetContentItem(ctx context.Context, id uuid.UUID) (*kiln.ContentItem, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, content_type_id, draft_content, published_content,
		       route_path, created_by, updated_by, created_at, updated_at
		FROM content_item WHERE id = $1`, id)

	item, err := scanContentItem(row)
	if err != nil {
		return nil, r.handlePostgresError("get content item", err)
	}
	return item, nil
}

func scanContentItem(row pgx.Row) (*kiln.ContentItem, error) {
	var item kiln.ContentItem
	var draft, published []byte
	err := row.Scan(
		&item.ID, &item.ContentTypeID, &draft, &published,
		&item.RoutePath, &item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if item.DraftContent, err = docFromBytes(draft); err != nil {
		return nil, err
	}
	if item.PublishedContent, err = docFromBytes(published); err != nil {
		return nil, err
	}
	return &item, nil
}

// Query compilation

func (r *Repository) FindContentItems(ctx context.Context, contentType *kiln.ContentType, q kiln.FindQuery) ([]*kiln.ContentItem, int, error) {
	docColumn := "draft_content"
	if q.Source == kiln.SourcePublished {
		docColumn = "published_content"
	}

	c := &sqlCompiler{contentType: contentType, docColumn: docColumn}
	c.args = append(c.args, contentType.ID)
	where := fmt.Sprintf("content_type_id = $%d", len(c.args))
	if q.Source == kiln.SourcePublished {
		where += " AND published_content IS NOT NULL"
	}
	if q.Filter != nil {
		predicate, err := c.compile(q.Filter)
		if err != nil {
			return nil, 0, err
		}
		where += " AND " + predicate
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM content_item WHERE " + where
	if err := r.db.QueryRow(ctx, countQuery, c.args...).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count content items", err)
	}

	orderBy, err := c.compileSort(q.Sort)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, content_type_id, draft_content, published_content,
		       route_path, created_by, updated_by, created_at, updated_at
		FROM content_item WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		where, orderBy, len(c.args)+1, len(c.args)+2)
	args := append(c.args, q.PageSize, q.PageIndex*q.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, r.handlePostgresError("find content items", err)
	}
	defer rows.Close()

	var items []*kiln.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, 0, r.handlePostgresError("scan content item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.handlePostgresError("iterate content item rows", err)
	}
	return items, total, nil
}

// sqlCompiler lowers a validated filter tree onto JSONB predicates over the
// chosen document column. Field keys travel as bind arguments; only the
// operators themselves are inlined.
type sqlCompiler struct {
	contentType *kiln.ContentType
	docColumn   string
	args        []any
}

func (c *sqlCompiler) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *sqlCompiler) compile(f kiln.Filter) (string, error) {
	switch node := f.(type) {
	case kiln.Condition:
		return c.compileCondition(node)
	case kiln.And:
		return c.compileGroup(node.Filters, " AND ", "TRUE")
	case kiln.Or:
		return c.compileGroup(node.Filters, " OR ", "FALSE")
	default:
		return "", fmt.Errorf("unknown filter node %T: %w", f, kiln.ErrInvalidQuery)
	}
}

func (c *sqlCompiler) compileGroup(filters []kiln.Filter, sep, empty string) (string, error) {
	if len(filters) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		p, err := c.compile(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *sqlCompiler) compileCondition(cond kiln.Condition) (string, error) {
	expr, kind, err := c.fieldExpr(cond.FieldKey)
	if err != nil {
		return "", err
	}

	switch cond.Op {
	case kiln.OpIsNull:
		return fmt.Sprintf("(%s) IS NULL", expr), nil
	case kiln.OpNotNull:
		return fmt.Sprintf("(%s) IS NOT NULL", expr), nil
	case kiln.OpContains:
		if kind == exprTimestamp {
			expr = fmt.Sprintf("%s::text", expr)
		}
		return fmt.Sprintf("(%s) ILIKE '%%' || %s || '%%'", expr, c.bind(valueText(cond.Value))), nil
	case kiln.OpIn:
		candidates, ok := cond.Value.([]any)
		if !ok {
			return "", fmt.Errorf("operator in requires a list value: %w", kiln.ErrInvalidQuery)
		}
		texts := make([]string, 0, len(candidates))
		for _, cand := range candidates {
			texts = append(texts, valueText(cand))
		}
		if kind == exprTimestamp {
			return fmt.Sprintf("(%s) = ANY(%s::timestamptz[])", expr, c.bind(texts)), nil
		}
		return fmt.Sprintf("(%s) = ANY(%s)", expr, c.bind(texts)), nil
	}

	op, ok := sqlComparators[cond.Op]
	if !ok {
		return "", fmt.Errorf("unknown operator %q: %w", cond.Op, kiln.ErrInvalidQuery)
	}
	switch kind {
	case exprNumeric:
		return fmt.Sprintf("(%s)::numeric %s %s", expr, op, c.bind(toNumeric(cond.Value))), nil
	case exprTimestamp:
		return fmt.Sprintf("(%s) %s %s::timestamptz", expr, op, c.bind(valueText(cond.Value))), nil
	}
	return fmt.Sprintf("(%s) %s %s", expr, op, c.bind(valueText(cond.Value))), nil
}

var sqlComparators = map[kiln.FilterOp]string{
	kiln.OpEq:  "=",
	kiln.OpNeq: "<>",
	kiln.OpLt:  "<",
	kiln.OpLte: "<=",
	kiln.OpGt:  ">",
	kiln.OpGte: ">=",
}

// exprKind tells the condition compiler how an expression compares:
// as text, as a numeric cast, or as a native timestamptz column.
type exprKind int

const (
	exprText exprKind = iota
	exprNumeric
	exprTimestamp
)

// fieldExpr resolves a key to a SQL expression: builtin metadata columns
// map to their table columns, declared fields to JSONB text extraction.
func (c *sqlCompiler) fieldExpr(key string) (string, exprKind, error) {
	switch key {
	case "id":
		return "id::text", exprText, nil
	case "route":
		return "route_path", exprText, nil
	case "created_at":
		return "created_at", exprTimestamp, nil
	case "updated_at":
		return "updated_at", exprTimestamp, nil
	}
	field, ok := c.contentType.FieldByDeveloperName(key)
	if !ok {
		return "", exprText, &kiln.QueryError{Key: key, Err: fmt.Errorf("unresolvable field key: %w", kiln.ErrInvalidQuery)}
	}
	expr := fmt.Sprintf("%s ->> %s", c.docColumn, c.bind(key))
	if field.Kind == kiln.FieldKindNumber {
		return expr, exprNumeric, nil
	}
	return expr, exprText, nil
}

func (c *sqlCompiler) compileSort(sort []kiln.SortClause) (string, error) {
	if len(sort) == 0 {
		return "created_at DESC", nil
	}
	parts := make([]string, 0, len(sort))
	for _, s := range sort {
		expr, kind, err := c.fieldExpr(s.FieldKey)
		if err != nil {
			return "", err
		}
		if kind == exprNumeric {
			expr = fmt.Sprintf("(%s)::numeric", expr)
		}
		dir := "ASC"
		if s.Descending {
			dir = "DESC"
		}
		parts = append(parts, expr+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

func valueText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toNumeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Revision ledger operations

func (r *Repository) AppendRevisionAndUpdateItem(ctx context.Context, revision *kiln.ContentItemRevision, item *kiln.ContentItem) error {
	return r.inTx(ctx, func(db DBTX) error {
		published, err := docParam(revision.PublishedContent)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx, `
			INSERT INTO content_item_revision (id, content_item_id, published_content, created_at)
			VALUES ($1, $2, $3, $4)`,
			revision.ID, revision.ContentItemID, published, revision.CreatedAt)
		if err != nil {
			return r.handlePostgresError("append revision", err)
		}
		return r.updateContentItem(ctx, db, item)
	})
}

func (r *Repository) ListRevisions(ctx context.Context, contentItemID uuid.UUID) ([]*kiln.ContentItemRevision, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, content_item_id, published_content, created_at
		FROM content_item_revision
		WHERE content_item_id = $1
		ORDER BY created_at DESC, id DESC`, contentItemID)
	if err != nil {
		return nil, r.handlePostgresError("list revisions", err)
	}
	defer rows.Close()

	var revisions []*kiln.ContentItemRevision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan revision", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate revision rows", err)
	}
	return revisions, nil
}

func (r *Repository) GetRevision(ctx context.Context, id uuid.UUID) (*kiln.ContentItemRevision, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, content_item_id, published_content, created_at
		FROM content_item_revision WHERE id = $1`, id)

	rev, err := scanRevision(row)
	if err != nil {
		return nil, r.handlePostgresError("get revision", err)
	}
	return rev, nil
}

func scanRevision(row pgx.Row) (*kiln.ContentItemRevision, error) {
	var rev kiln.ContentItemRevision
	var published []byte
	if err := row.Scan(&rev.ID, &rev.ContentItemID, &published, &rev.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if rev.PublishedContent, err = docFromBytes(published); err != nil {
		return nil, err
	}
	return &rev, nil
}

// Soft delete

func (r *Repository) MoveToDeleted(ctx context.Context, item *kiln.ContentItem, tombstone *kiln.DeletedContentItem) error {
	return r.inTx(ctx, func(db DBTX) error {
		draft, err := docParam(tombstone.DraftContent)
		if err != nil {
			return err
		}
		published, err := docParam(tombstone.PublishedContent)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx, `
			INSERT INTO deleted_content_item (
				id, content_item_id, content_type_id, route_path,
				draft_content, published_content, created_by, created_at,
				deleted_by, deleted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			tombstone.ID, tombstone.ContentItemID, tombstone.ContentTypeID, tombstone.RoutePath,
			draft, published, tombstone.CreatedBy, tombstone.CreatedAt,
			tombstone.DeletedBy, tombstone.DeletedAt)
		if err != nil {
			return r.handlePostgresError("create tombstone", err)
		}

		tag, err := db.Exec(ctx, `DELETE FROM content_item WHERE id = $1`, item.ID)
		if err != nil {
			return r.handlePostgresError("delete content item", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("content item %s: %w", item.ID, kiln.ErrNotFound)
		}
		return nil
	})
}

func (r *Repository) GetDeletedContentItem(ctx context.Context, contentItemID uuid.UUID) (*kiln.DeletedContentItem, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, content_item_id, content_type_id, route_path,
		       draft_content, published_content, created_by, created_at,
		       deleted_by, deleted_at
		FROM deleted_content_item WHERE content_item_id = $1`, contentItemID)

	var t kiln.DeletedContentItem
	var draft, published []byte
	err := row.Scan(&t.ID, &t.ContentItemID, &t.ContentTypeID, &t.RoutePath,
		&draft, &published, &t.CreatedBy, &t.CreatedAt, &t.DeletedBy, &t.DeletedAt)
	if err != nil {
		return nil, r.handlePostgresError("get deleted content item", err)
	}
	if t.DraftContent, err = docFromBytes(draft); err != nil {
		return nil, err
	}
	if t.PublishedContent, err = docFromBytes(published); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Restore(ctx context.Context, tombstone *kiln.DeletedContentItem, item *kiln.ContentItem) error {
	return r.inTx(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx, `DELETE FROM deleted_content_item WHERE id = $1`, tombstone.ID)
		if err != nil {
			return r.handlePostgresError("delete tombstone", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("deleted content item %s: %w", tombstone.ContentItemID, kiln.ErrNotFound)
		}
		return r.execContentItemWrite(ctx, db, `
			INSERT INTO content_item (
				id, content_type_id, draft_content, published_content,
				route_path, created_by, updated_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, item, "restore content item")
	})
}

// Content type operations

func (r *Repository) CreateContentType(ctx context.Context, ct *kiln.ContentType) error {
	fields, err := json.Marshal(ct.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO content_type (id, label, developer_name, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ct.ID, ct.Label, ct.DeveloperName, fields, ct.CreatedAt, ct.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create content type", err)
	}
	return nil
}

func (r *Repository) GetContentType(ctx context.Context, id uuid.UUID) (*kiln.ContentType, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, label, developer_name, fields, created_at, updated_at
		FROM content_type WHERE id = $1`, id)

	ct, err := scanContentType(row)
	if err != nil {
		return nil, r.handlePostgresError("get content type", err)
	}
	return ct, nil
}

func (r *Repository) GetContentTypeByDeveloperName(ctx context.Context, developerName string) (*kiln.ContentType, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, label, developer_name, fields, created_at, updated_at
		FROM content_type WHERE developer_name = $1`, developerName)

	ct, err := scanContentType(row)
	if err != nil {
		return nil, r.handlePostgresError("get content type by developer name", err)
	}
	return ct, nil
}

func scanContentType(row pgx.Row) (*kiln.ContentType, error) {
	var ct kiln.ContentType
	var fields []byte
	if err := row.Scan(&ct.ID, &ct.Label, &ct.DeveloperName, &fields, &ct.CreatedAt, &ct.UpdatedAt); err != nil {
		return nil, err
	}
	if fields != nil {
		if err := json.Unmarshal(fields, &ct.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	return &ct, nil
}

func (r *Repository) UpdateContentType(ctx context.Context, ct *kiln.ContentType) error {
	fields, err := json.Marshal(ct.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE content_type SET label = $2, developer_name = $3, fields = $4, updated_at = $5
		WHERE id = $1`,
		ct.ID, ct.Label, ct.DeveloperName, fields, ct.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update content type", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("content type %s: %w", ct.ID, kiln.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListContentTypes(ctx context.Context) ([]*kiln.ContentType, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, label, developer_name, fields, created_at, updated_at
		FROM content_type ORDER BY developer_name`)
	if err != nil {
		return nil, r.handlePostgresError("list content types", err)
	}
	defer rows.Close()

	var types []*kiln.ContentType
	for rows.Next() {
		ct, err := scanContentType(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan content type", err)
		}
		types = append(types, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate content type rows", err)
	}
	return types, nil
}

// Media item operations

func (r *Repository) CreateMediaItem(ctx context.Context, item *kiln.MediaItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO media_item (
			id, file_name, length, content_type, provider, object_key, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.FileName, item.Length, item.ContentType,
		item.Provider, item.ObjectKey, item.CreatedBy, item.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create media item", err)
	}
	return nil
}

func (r *Repository) GetMediaItem(ctx context.Context, id uuid.UUID) (*kiln.MediaItem, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, file_name, length, content_type, provider, object_key, created_by, created_at
		FROM media_item WHERE id = $1`, id)

	var item kiln.MediaItem
	err := row.Scan(&item.ID, &item.FileName, &item.Length, &item.ContentType,
		&item.Provider, &item.ObjectKey, &item.CreatedBy, &item.CreatedAt)
	if err != nil {
		return nil, r.handlePostgresError("get media item", err)
	}
	return &item, nil
}

func (r *Repository) GetMediaItemByObjectKey(ctx context.Context, objectKey string) (*kiln.MediaItem, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, file_name, length, content_type, provider, object_key, created_by, created_at
		FROM media_item WHERE object_key = $1`, objectKey)

	var item kiln.MediaItem
	err := row.Scan(&item.ID, &item.FileName, &item.Length, &item.ContentType,
		&item.Provider, &item.ObjectKey, &item.CreatedBy, &item.CreatedAt)
	if err != nil {
		return nil, r.handlePostgresError("get media item by object key", err)
	}
	return &item, nil
}

func (r *Repository) DeleteMediaItem(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_item WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete media item", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("media item %s: %w", id, kiln.ErrNotFound)
	}
	return nil
}

func (r *Repository) SumMediaLength(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(length), 0) FROM media_item`).Scan(&total); err != nil {
		return 0, r.handlePostgresError("sum media length", err)
	}
	return total, nil
}
