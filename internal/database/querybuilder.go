package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// QueryBuilder wraps sqlx and rebinds `?` placeholders for the connected driver,
// so repositories write every query once.
type QueryBuilder struct {
	db *sqlx.DB
}

// NewQueryBuilder creates a QueryBuilder over an open sqlx connection.
func NewQueryBuilder(db *sqlx.DB) *QueryBuilder {
	return &QueryBuilder{db: db}
}

// DriverName returns the driver the connection was opened with.
func (qb *QueryBuilder) DriverName() string {
	return qb.db.DriverName()
}

// IsMySQL reports whether the connection speaks the MySQL dialect.
func (qb *QueryBuilder) IsMySQL() bool {
	return IsMySQL(qb.db.DriverName())
}

// Rebind converts a query with ? placeholders to the appropriate format for the database.
func (qb *QueryBuilder) Rebind(query string) string {
	return qb.db.Rebind(query)
}

// SelectContext executes a query with context and scans results into dest.
func (qb *QueryBuilder) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return qb.db.SelectContext(ctx, dest, qb.Rebind(query), args...)
}

// GetContext executes a query with context expecting a single row.
func (qb *QueryBuilder) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return qb.db.GetContext(ctx, dest, qb.Rebind(query), args...)
}

// ExecContext executes a query with context without returning rows.
func (qb *QueryBuilder) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return qb.db.ExecContext(ctx, qb.Rebind(query), args...)
}

// QueryRowContext executes a query with context expecting a single row.
func (qb *QueryBuilder) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return qb.db.QueryRowContext(ctx, qb.Rebind(query), args...)
}

// InsertReturningID runs an INSERT and returns the generated id. PostgreSQL
// gets a RETURNING clause; MySQL and SQLite report LastInsertId.
func (qb *QueryBuilder) InsertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if IsPostgreSQL(qb.db.DriverName()) {
		var id int64
		err := qb.db.QueryRowContext(ctx, qb.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := qb.db.ExecContext(ctx, qb.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// In expands slice arguments for IN clauses.
// Example: In("SELECT * FROM users WHERE id IN (?)", []int{1,2,3}).
func (qb *QueryBuilder) In(query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return qb.Rebind(q), a, nil
}

// SelectBuilder provides a fluent interface for building SELECT queries safely.
type SelectBuilder struct {
	qb       *QueryBuilder
	columns  []string
	table    string
	where    []string
	args     []interface{}
	orderBy  []string
	limit    int
	hasLimit bool
}

// NewSelect creates a new SelectBuilder.
func (qb *QueryBuilder) NewSelect(columns ...string) *SelectBuilder {
	return &SelectBuilder{
		qb:      qb,
		columns: columns,
	}
}

// From sets the table to select from.
func (sb *SelectBuilder) From(table string) *SelectBuilder {
	sb.table = table
	return sb
}

// Where adds a WHERE condition with parameterized values.
func (sb *SelectBuilder) Where(condition string, args ...interface{}) *SelectBuilder {
	sb.where = append(sb.where, condition)
	sb.args = append(sb.args, args...)
	return sb
}

// OrderBy adds ORDER BY columns.
func (sb *SelectBuilder) OrderBy(columns ...string) *SelectBuilder {
	sb.orderBy = append(sb.orderBy, columns...)
	return sb
}

// Limit sets the LIMIT clause. Zero or negative means no limit.
func (sb *SelectBuilder) Limit(limit int) *SelectBuilder {
	if limit > 0 {
		sb.limit = limit
		sb.hasLimit = true
	}
	return sb
}

// ToSQL builds the SQL query and returns it with arguments.
func (sb *SelectBuilder) ToSQL() (string, []interface{}, error) {
	if sb.table == "" {
		return "", nil, fmt.Errorf("table not specified")
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	if len(sb.columns) == 0 {
		query.WriteString("*")
	} else {
		query.WriteString(strings.Join(sb.columns, ", "))
	}
	query.WriteString(" FROM ")
	query.WriteString(sb.table)

	args := append([]interface{}(nil), sb.args...)

	if len(sb.where) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(sb.where, " AND "))
	}

	if len(sb.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(sb.orderBy, ", "))
	}

	if sb.hasLimit {
		query.WriteString(" LIMIT ?")
		args = append(args, sb.limit)
	}

	return sb.qb.In(query.String(), args...)
}

// SelectContext executes the query with context and scans into dest.
func (sb *SelectBuilder) SelectContext(ctx context.Context, dest interface{}) error {
	query, args, err := sb.ToSQL()
	if err != nil {
		return err
	}
	return sb.qb.db.SelectContext(ctx, dest, query, args...)
}

// GetContext executes the query with context expecting a single row.
func (sb *SelectBuilder) GetContext(ctx context.Context, dest interface{}) error {
	query, args, err := sb.ToSQL()
	if err != nil {
		return err
	}
	return sb.qb.db.GetContext(ctx, dest, query, args...)
}
