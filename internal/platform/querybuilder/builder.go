package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition renders one WHERE predicate, appending its bind values to
// args starting at *next.
type Condition func(buf *strings.Builder, args *[]any, next *int)

func Eq(column string, value any) Condition {
	return func(buf *strings.Builder, args *[]any, next *int) {
		buf.WriteString(column)
		buf.WriteString(" = ")
		buf.WriteString(placeholder(*next))
		*args = append(*args, value)
		*next++
	}
}

func IsNull(column string) Condition {
	return func(buf *strings.Builder, _ *[]any, _ *int) {
		buf.WriteString(column)
		buf.WriteString(" IS NULL")
	}
}

// Expr embeds a raw predicate. Each ? is rewritten to the next numbered
// placeholder and bound to the matching argument.
func Expr(expr string, exprArgs ...any) Condition {
	return func(buf *strings.Builder, args *[]any, next *int) {
		buf.WriteString(bindPlaceholders(expr, exprArgs, args, next))
	}
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var buf strings.Builder
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(b.columns, ", "))
	buf.WriteString(" FROM ")
	buf.WriteString(b.table)

	args := make([]any, 0, len(b.where))
	next := 1
	writeWhere(&buf, b.where, &args, &next)
	if len(b.orderBy) > 0 {
		buf.WriteString(" ORDER BY ")
		buf.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		buf.WriteString(" LIMIT ")
		buf.WriteString(strconv.Itoa(b.limit))
	}

	return buf.String(), args, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends trailing SQL after the VALUES list, typically an
// ON CONFLICT clause. ? placeholders in the suffix are bound like Expr.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	var buf strings.Builder
	buf.WriteString("INSERT INTO ")
	buf.WriteString(b.table)
	buf.WriteString(" (")
	buf.WriteString(strings.Join(b.columns, ", "))
	buf.WriteString(") VALUES ")

	args := make([]any, 0, len(b.rows)*len(b.columns))
	next := 1
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", i, len(row), len(b.columns))
		}
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("(")
		for j, value := range row {
			if j > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(placeholder(next))
			args = append(args, value)
			next++
		}
		buf.WriteString(")")
	}

	if b.suffix != "" {
		buf.WriteString(" ")
		buf.WriteString(bindPlaceholders(b.suffix, nil, &args, &next))
	}

	return buf.String(), args, nil
}

type setClause struct {
	column string
	expr   string
	args   []any
}

type UpdateBuilder struct {
	table string
	sets  []setClause
	where []Condition
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// SetExpr assigns a raw SQL expression to a column, binding ? markers
// like Expr.
func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, expr: expr, args: args})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	var buf strings.Builder
	buf.WriteString("UPDATE ")
	buf.WriteString(b.table)
	buf.WriteString(" SET ")

	args := make([]any, 0, len(b.sets)+len(b.where))
	next := 1
	for i, s := range b.sets {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(s.column)
		buf.WriteString(" = ")
		buf.WriteString(bindPlaceholders(s.expr, s.args, &args, &next))
	}

	writeWhere(&buf, b.where, &args, &next)

	return buf.String(), args, nil
}

func writeWhere(buf *strings.Builder, conditions []Condition, args *[]any, next *int) {
	if len(conditions) == 0 {
		return
	}
	buf.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			buf.WriteString(" AND ")
		}
		c(buf, args, next)
	}
}

func placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}

func bindPlaceholders(expr string, exprArgs []any, args *[]any, next *int) string {
	if len(exprArgs) == 0 {
		return expr
	}

	var out strings.Builder
	used := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && used < len(exprArgs) {
			out.WriteString(placeholder(*next))
			*args = append(*args, exprArgs[used])
			*next++
			used++
			continue
		}
		out.WriteByte(expr[i])
	}
	return out.String()
}
