package gormstore

import (
	"database/sql/driver"
	"strings"

	sqlitedriver "github.com/glebarez/go-sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLite's lower() only folds ASCII. fold_lower applies the same Unicode
// folding the search terms get, so "Über" matches "über".
func init() {
	sqlitedriver.MustRegisterDeterministicScalarFunction("fold_lower", 1, func(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// searchDocument is the text a post is matched against on Postgres.
const searchDocument = "to_tsvector('english', coalesce(title, '') || ' ' || coalesce(content, '') || ' ' || coalesce(array_to_string(tags, ' '), ''))"

// whereTag filters on exact tag membership. SQLite keeps the array literal
// as text, where every element is double quoted.
func (s *Store) whereTag(tx *gorm.DB, tag string) *gorm.DB {
	if s.postgres {
		return tx.Where("? = ANY(tags)", tag)
	}
	quoted := `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(tag) + `"`
	return tx.Where(`tags LIKE ? ESCAPE '\'`, "%"+escapeLike(quoted)+"%")
}

// whereText restricts tx to posts matching any of terms and returns the
// relevance expression to order by.
func (s *Store) whereText(tx *gorm.DB, terms []string) (*gorm.DB, clause.Expr) {
	if s.postgres {
		query := strings.Join(terms, " | ")
		tx = tx.Where(searchDocument+" @@ to_tsquery('english', ?)", query)
		return tx, clause.Expr{
			SQL:  "ts_rank(" + searchDocument + ", to_tsquery('english', ?))",
			Vars: []any{query},
		}
	}

	// One point per field containing a term, the same scoring the memory
	// store uses.
	var parts []string
	var vars []any
	for _, t := range terms {
		pattern := "%" + t + "%"
		for _, col := range []string{"title", "content", "tags"} {
			parts = append(parts, "(CASE WHEN fold_lower("+col+") LIKE ? THEN 1 ELSE 0 END)")
			vars = append(vars, pattern)
		}
	}
	score := "(" + strings.Join(parts, " + ") + ")"
	tx = tx.Where(score+" > 0", vars...)
	return tx, clause.Expr{SQL: score, Vars: vars}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
