// internal/repository/command_repository_test.go
package repository

import "testing"

func TestIsSortableColumn(t *testing.T) {
	t.Parallel()

	for _, column := range []string{"created_at", "duration_ms", "kind", "status"} {
		if !IsSortableColumn(column) {
			t.Errorf("IsSortableColumn(%q) = false, want true", column)
		}
	}

	for _, column := range []string{
		"",
		"payload",
		"created_at DESC",
		"(SELECT pg_sleep(10))",
		"created_at; DROP TABLE command_history",
	} {
		if IsSortableColumn(column) {
			t.Errorf("IsSortableColumn(%q) = true, want false", column)
		}
	}
}
