package postgres

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Column names accepted in partial updates.
const (
	ColumnTitle          = "title"
	ColumnMessage        = "message"
	ColumnUnlockDate     = "unlock_date"
	ColumnReminderSentAt = "reminder_sent_at"
)

var patchable = map[string]bool{
	ColumnTitle:          true,
	ColumnMessage:        true,
	ColumnUnlockDate:     true,
	ColumnReminderSentAt: true,
}

// buildPatch turns column->value pairs into "col = @col" assignments.
// Columns are sorted so the statement text is stable.
func buildPatch(updates map[string]interface{}) (string, pgx.NamedArgs, error) {
	if len(updates) == 0 {
		return "", nil, errors.New("no fields to update")
	}
	cols := make([]string, 0, len(updates))
	for c := range updates {
		if !patchable[c] {
			return "", nil, fmt.Errorf("column %q is not updatable", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := pgx.NamedArgs{}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = @" + c
		args[c] = updates[c]
	}
	return strings.Join(sets, ", "), args, nil
}

// dedupe drops empty ids, duplicates and skip while keeping first-seen order.
func dedupe(ids []string, skip string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == skip || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
