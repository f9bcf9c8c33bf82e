package patch

import (
	"strings"

	"github.com/jobtrack/application-tracker/internal/models"
)

// Placeholder renders the n-th (1-based) bind parameter of a SQL dialect.
type Placeholder func(n int) string

// BuildUpdate produces an UPDATE statement touching only the supplied fields
// of the row identified by id. Values are always bound, never interpolated;
// only enumerated column names reach the statement text.
func BuildUpdate(table string, id int64, p Patch, ph Placeholder, returning string) (string, []any, error) {
	changes := p.Changes()
	if len(changes) == 0 {
		return "", nil, models.ErrNoFieldsProvided
	}

	sets := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)
	for i, c := range changes {
		sets = append(sets, c.Field.Column()+" = "+ph(i+1))
		args = append(args, c.Value)
	}
	args = append(args, id)

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ", "))
	sb.WriteString(" WHERE id = ")
	sb.WriteString(ph(len(args)))
	if returning != "" {
		sb.WriteString(" RETURNING ")
		sb.WriteString(returning)
	}
	return sb.String(), args, nil
}
