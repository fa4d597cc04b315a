package query

import (
	"fmt"
	"strings"

	"outfit-db-api/internal/model"
)

// Table is the outfits table name.
const Table = "outfits"

// OutfitColumns is the column list every outfit read selects, in scan order.
const OutfitColumns = "unique_id, name, price, accessory_data, serialized_description, other_metadata, views, favourites, upload_time"

// Builder accumulates bound parameters for one statement.
type Builder struct {
	dialect Dialect
	args    []any
}

// NewBuilder creates a builder for the given dialect.
func NewBuilder(d Dialect) *Builder {
	return &Builder{dialect: d}
}

// Bind appends v to the parameter list and returns its placeholder.
func (b *Builder) Bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

// BindList binds every id and returns the comma-separated placeholders.
func (b *Builder) BindList(ids []int64) string {
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = b.Bind(id)
	}
	return strings.Join(marks, ", ")
}

// Args returns the parameters bound so far.
func (b *Builder) Args() []any {
	return b.args
}

// SelectByUniqueIDs builds the batched point lookup. ids must not be empty.
func SelectByUniqueIDs(d Dialect, ids []int64) (string, []any) {
	b := NewBuilder(d)
	sql := "SELECT " + OutfitColumns + " FROM " + Table + " WHERE " + d.MatchIDs(b, "unique_id", ids)
	return sql, b.Args()
}

// ExistsByUniqueID builds the collision check used by ID allocation.
func ExistsByUniqueID(d Dialect, id int64) (string, []any) {
	b := NewBuilder(d)
	sql := "SELECT 1 FROM " + Table + " WHERE unique_id = " + b.Bind(id) + " LIMIT 1"
	return sql, b.Args()
}

// Search builds the filtered, sorted listing. Unknown sort types fall back
// to Newest.
func Search(d Dialect, p model.SearchParams) (string, []any) {
	b := NewBuilder(d)

	var sb strings.Builder
	sb.WriteString("SELECT " + OutfitColumns + " FROM " + Table)

	if keyword := strings.TrimSpace(p.Keyword); keyword != "" {
		pattern := "%" + EscapeLike(strings.ToLower(keyword)) + "%"
		sb.WriteString(" WHERE (")
		sb.WriteString(d.ContainsFold(b, "name", pattern))
		sb.WriteString(" OR ")
		sb.WriteString(d.ContainsFold(b, d.JSONText("other_metadata"), pattern))
		sb.WriteString(")")
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(OrderBy(d, p.Sort))

	sb.WriteString(" LIMIT ")
	sb.WriteString(b.Bind(p.Limit))

	return sb.String(), b.Args()
}

// OrderBy returns the ORDER BY expression for a sort type.
func OrderBy(d Dialect, sort model.SortType) string {
	switch sort {
	case model.SortPopular:
		return "(favourites + views) DESC, upload_time DESC"
	case model.SortTrending:
		return d.TrendingScore() + " DESC"
	default:
		return "upload_time DESC"
	}
}

// IncrementCounter builds the bulk +1 update for counter. ids must not be empty.
func IncrementCounter(d Dialect, counter model.Counter, ids []int64) (string, []any, error) {
	if !counter.Valid() {
		return "", nil, fmt.Errorf("unknown counter %q", counter)
	}

	b := NewBuilder(d)
	col := string(counter)
	sql := "UPDATE " + Table + " SET " + col + " = " + col + " + 1, updated_at = CURRENT_TIMESTAMP WHERE " +
		d.MatchIDs(b, "unique_id", ids)
	return sql, b.Args(), nil
}

// InsertOutfit builds the insert for a new record. JSON documents are bound
// as text so every backend parses them into its JSON column type.
func InsertOutfit(d Dialect, o *model.Outfit) (string, []any) {
	b := NewBuilder(d)
	values := []string{
		b.Bind(o.UniqueID),
		b.Bind(o.Name),
		b.Bind(o.Price),
		b.Bind(string(o.AccessoryData)),
		b.Bind(string(o.SerializedDescription)),
		b.Bind(string(o.OtherMetadata)),
		b.Bind(o.Views),
		b.Bind(o.Favourites),
		b.Bind(o.UploadTime),
	}
	sql := "INSERT INTO " + Table + " (" + OutfitColumns + ") VALUES (" + strings.Join(values, ", ") + ")"
	return sql, b.Args()
}

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
