package mapping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope for store spans.
const tracerName = "github.com/RealmGate/realmgate-core/pkg/mapping"

// tableName is the mappings table. Migrate creates it.
const tableName = "user_mappings"

// columns usable in filters and sort tokens. Everything else is rejected
// before any SQL is built.
var allowedColumns = map[string]bool{
	"user_id":          true,
	"external_user_id": true,
	"created_at":       true,
}

// Querier is the query surface the store needs. It is satisfied by both
// [*postgres.Client] and [pgx.Tx], so a store can be rebound inside a
// caller-managed transaction via [Store.WithTx].
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// LockMode selects the row lock taken by a read. The zero value takes no
// lock.
type LockMode int

const (
	LockNone LockMode = iota

	// LockShare takes a shared lock (FOR SHARE): other readers may also
	// lock, writers wait.
	LockShare

	// LockUpdate takes an exclusive lock (FOR UPDATE) for
	// read-modify-write sequences.
	LockUpdate
)

func (m LockMode) clause() string {
	switch m {
	case LockShare:
		return " FOR SHARE"
	case LockUpdate:
		return " FOR UPDATE"
	default:
		return ""
	}
}

// Query describes a filtered read. The zero value selects everything in
// primary key order.
type Query struct {
	// Filter matches rows by column equality. Keys must be allow-listed
	// column names.
	Filter map[string]any

	// Sort is an ordered list of "<column>_asc" / "<column>_desc"
	// tokens, e.g. {"created_at_desc", "user_id_asc"}. Tokens that do
	// not parse or name an unknown column are dropped; when none
	// survive, rows come back by user_id ascending.
	Sort []string

	// Page is 1-indexed; 0 means no paging. PerPage must be set when
	// Page is.
	Page    int
	PerPage int

	// Lock is the row lock to take. Only meaningful inside a
	// transaction.
	Lock LockMode
}

// Store is the relational persistence layer for user mappings. It never
// opens or commits transactions itself; callers that need one use
// [Store.WithTx].
//
// Store is safe for concurrent use.
type Store struct {
	db     Querier
	tracer trace.Tracer
}

// NewStore creates a store over the given query surface.
func NewStore(db Querier) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
}

// WithTx returns a store bound to the transaction. The receiver is
// unchanged.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx, tracer: s.tracer}
}

// Migrate creates the mappings table and its subject index if they do not
// exist.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.Migrate")
	defer span.End()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			user_id BIGINT PRIMARY KEY,
			external_user_id VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tableName + `_external_user_id
			ON ` + tableName + ` (external_user_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			wrapped := storeError(err, "mapping: migration failed")
			finishSpan(span, wrapped)
			return wrapped
		}
	}
	return nil
}

// Find returns the mappings matching the query.
//
// Returns [rgerr.CodeValidation] for unknown filter columns or malformed
// sort tokens, [rgerr.CodePersistence] for database failures.
func (s *Store) Find(ctx context.Context, q Query) ([]UserMapping, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.Find")
	defer span.End()

	rows, err := s.find(ctx, q)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("mapping.rows", len(rows)))
	return rows, nil
}

// FindWithCount returns one page of matches plus the total match count
// ignoring paging, for building paginated listings.
func (s *Store) FindWithCount(ctx context.Context, q Query) ([]UserMapping, int64, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.FindWithCount")
	defer span.End()

	rows, err := s.find(ctx, q)
	if err != nil {
		finishSpan(span, err)
		return nil, 0, err
	}

	where, args, err := buildWhere(q.Filter)
	if err != nil {
		finishSpan(span, err)
		return nil, 0, err
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM " + tableName + where
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		wrapped := storeError(err, "mapping: count failed")
		finishSpan(span, wrapped)
		return nil, 0, wrapped
	}

	return rows, total, nil
}

// FindOne returns the first match in query order, or nil when nothing
// matches.
func (s *Store) FindOne(ctx context.Context, q Query) (*UserMapping, error) {
	q.Page = 1
	q.PerPage = 1
	rows, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FindOneOrFail is [Store.FindOne] but an empty result is an error with
// code [rgerr.CodeNotFound].
func (s *Store) FindOneOrFail(ctx context.Context, q Query) (*UserMapping, error) {
	m, err := s.FindOne(ctx, q)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, rgerr.New(rgerr.CodeNotFound, "mapping: no mapping matches the query")
	}
	return m, nil
}

// Get returns the mapping for a local user ID, with [rgerr.CodeNotFound]
// when none exists. An optional lock mode pins the row for the duration
// of the surrounding transaction.
func (s *Store) Get(ctx context.Context, userID int64, lock ...LockMode) (*UserMapping, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.Get")
	defer span.End()

	sql := "SELECT user_id, external_user_id, created_at FROM " + tableName + " WHERE user_id = $1"
	if len(lock) > 0 {
		sql += lock[0].clause()
	}

	var m UserMapping
	err := s.db.QueryRow(ctx, sql, userID).Scan(&m.UserID, &m.ExternalUserID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		notFound := rgerr.Newf(rgerr.CodeNotFound, "mapping: no mapping for user %d", userID)
		finishSpan(span, notFound)
		return nil, notFound
	}
	if err != nil {
		wrapped := storeError(err, "mapping: get failed")
		finishSpan(span, wrapped)
		return nil, wrapped
	}

	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// ResolveSubject returns the local user ID linked to a provider subject.
// It implements the resolver the authentication gate consumes; an
// unlinked subject comes back as [rgerr.CodeAccountNotLinked], which the
// wire layers turn into a 401.
func (s *Store) ResolveSubject(ctx context.Context, subject string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.ResolveSubject")
	defer span.End()

	var userID int64
	err := s.db.QueryRow(ctx,
		"SELECT user_id FROM "+tableName+" WHERE external_user_id = $1 ORDER BY user_id LIMIT 1",
		subject,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		notLinked := rgerr.Newf(rgerr.CodeAccountNotLinked,
			"mapping: no account is linked to subject %q", subject)
		finishSpan(span, notLinked)
		return 0, notLinked
	}
	if err != nil {
		wrapped := storeError(err, "mapping: subject lookup failed")
		finishSpan(span, wrapped)
		return 0, wrapped
	}
	return userID, nil
}

// Insert creates a new mapping and returns its user ID. Inserting an
// existing user ID fails with [rgerr.CodePersistence]; use
// [Store.Upsert] for idempotent linking.
func (s *Store) Insert(ctx context.Context, m UserMapping) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.Insert")
	defer span.End()

	if err := validateMapping(m); err != nil {
		finishSpan(span, err)
		return 0, err
	}

	tag, err := s.db.Exec(ctx,
		"INSERT INTO "+tableName+" (user_id, external_user_id) VALUES ($1, $2)",
		m.UserID, m.ExternalUserID,
	)
	if err != nil {
		wrapped := storeError(err, "mapping: insert failed")
		finishSpan(span, wrapped)
		return 0, wrapped
	}
	if tag.RowsAffected() == 0 {
		err := rgerr.New(rgerr.CodePersistence, "mapping: insert affected no rows")
		finishSpan(span, err)
		return 0, err
	}
	return m.UserID, nil
}

// Save updates an existing mapping's subject. A missing row fails with
// [rgerr.CodePersistence]; the write was expected to take effect.
func (s *Store) Save(ctx context.Context, m UserMapping) error {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.Save")
	defer span.End()

	if err := validateMapping(m); err != nil {
		finishSpan(span, err)
		return err
	}

	tag, err := s.db.Exec(ctx,
		"UPDATE "+tableName+" SET external_user_id = $2 WHERE user_id = $1",
		m.UserID, m.ExternalUserID,
	)
	if err != nil {
		wrapped := storeError(err, "mapping: save failed")
		finishSpan(span, wrapped)
		return wrapped
	}
	if tag.RowsAffected() == 0 {
		noEffect := rgerr.Newf(rgerr.CodePersistence,
			"mapping: save affected no rows for user %d", m.UserID)
		finishSpan(span, noEffect)
		return noEffect
	}
	return nil
}

// Upsert links a subject to a local account, updating the subject when
// the account is already linked. created_at is set only on first insert,
// so the link's age survives re-syncs. Upsert is idempotent; it returns
// whether any row was written.
func (s *Store) Upsert(ctx context.Context, m UserMapping) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.Upsert")
	defer span.End()

	if err := validateMapping(m); err != nil {
		finishSpan(span, err)
		return false, err
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO `+tableName+` (user_id, external_user_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET external_user_id = EXCLUDED.external_user_id`,
		m.UserID, m.ExternalUserID,
	)
	if err != nil {
		wrapped := storeError(err, "mapping: upsert failed")
		finishSpan(span, wrapped)
		return false, wrapped
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the mapping for a user ID, reporting whether a row
// existed.
func (s *Store) Delete(ctx context.Context, userID int64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.Delete")
	defer span.End()

	tag, err := s.db.Exec(ctx, "DELETE FROM "+tableName+" WHERE user_id = $1", userID)
	if err != nil {
		wrapped := storeError(err, "mapping: delete failed")
		finishSpan(span, wrapped)
		return false, wrapped
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteMany removes the mappings with the given user IDs and returns
// the number of rows removed. An empty ID list is a no-op.
func (s *Store) DeleteMany(ctx context.Context, userIDs []int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "mapping.Store.DeleteMany")
	defer span.End()

	if len(userIDs) == 0 {
		return 0, nil
	}

	tag, err := s.db.Exec(ctx,
		"DELETE FROM "+tableName+" WHERE user_id = ANY($1)", userIDs)
	if err != nil {
		wrapped := storeError(err, "mapping: delete many failed")
		finishSpan(span, wrapped)
		return 0, wrapped
	}
	return tag.RowsAffected(), nil
}

func (s *Store) find(ctx context.Context, q Query) ([]UserMapping, error) {
	where, args, err := buildWhere(q.Filter)
	if err != nil {
		return nil, err
	}

	sql := "SELECT user_id, external_user_id, created_at FROM " + tableName + where + buildOrderBy(q.Sort)

	if q.Page > 0 {
		if q.PerPage <= 0 {
			return nil, rgerr.New(rgerr.CodeValidation,
				"mapping: per_page must be positive when page is set")
		}
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", q.PerPage, (q.Page-1)*q.PerPage)
	}

	sql += q.Lock.clause()

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "mapping: find failed")
	}
	defer rows.Close()

	var out []UserMapping
	for rows.Next() {
		var m UserMapping
		if err := rows.Scan(&m.UserID, &m.ExternalUserID, &m.CreatedAt); err != nil {
			return nil, storeError(err, "mapping: scan failed")
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "mapping: row iteration failed")
	}
	return out, nil
}

// buildWhere turns an equality filter into a WHERE clause with positional
// args. Filter keys are sorted so the generated SQL is deterministic.
func buildWhere(filter map[string]any) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !allowedColumns[k] {
			return "", nil, rgerr.Newf(rgerr.CodeValidation,
				"mapping: unknown filter column %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, filter[k])
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// buildOrderBy joins "<column>_asc" / "<column>_desc" sort tokens into
// an ORDER BY clause, preserving their order. Tokens that do not parse
// or name an unknown column are silently dropped.
func buildOrderBy(tokens []string) string {
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		var column, direction string
		switch {
		case strings.HasSuffix(token, "_asc"):
			column, direction = strings.TrimSuffix(token, "_asc"), "ASC"
		case strings.HasSuffix(token, "_desc"):
			column, direction = strings.TrimSuffix(token, "_desc"), "DESC"
		default:
			continue
		}
		if !allowedColumns[column] {
			continue
		}
		terms = append(terms, column+" "+direction)
	}

	if len(terms) == 0 {
		return " ORDER BY user_id ASC"
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func validateMapping(m UserMapping) error {
	if m.UserID <= 0 {
		return rgerr.New(rgerr.CodeValidation, "mapping: user ID must be positive")
	}
	if m.ExternalUserID == "" {
		return rgerr.New(rgerr.CodeValidationRequired, "mapping: external user ID is required")
	}
	if len(m.ExternalUserID) > maxExternalIDLength {
		return rgerr.Newf(rgerr.CodeValidation,
			"mapping: external user ID exceeds %d characters", maxExternalIDLength)
	}
	return nil
}

// storeError classifies a database failure, passing through errors that
// already carry a code (e.g. from the postgres client).
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var rgError *rgerr.Error
	if errors.As(err, &rgError) {
		return rgError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return rgerr.Wrap(err, rgerr.CodeTimeoutDatabase, message)
	}
	return rgerr.Wrap(err, rgerr.CodePersistence, message)
}

// finishSpan records a non-nil error on the span and marks it failed.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
