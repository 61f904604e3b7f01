package infra

import (
	"context"
	"strings"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	query := `--sql 0f6f2a52-93c1-4d8e-9c39-3d7c0a1f4e21
select balance from accounts where id = $1;
`
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker error: %v", err)
	}
	if marker != "0f6f2a52-93c1-4d8e-9c39-3d7c0a1f4e21" {
		t.Fatalf("marker = %q", marker)
	}
	if !strings.HasPrefix(body, "select balance") {
		t.Fatalf("body should start with the statement, got %q", body)
	}
}

func TestExtractMarkerRejectsMissingMarker(t *testing.T) {
	tests := []string{
		"select 1",
		"--sql not-a-uuid\nselect 1",
		"",
	}
	for _, q := range tests {
		if _, _, err := extractMarker(q); err == nil {
			t.Fatalf("expected error for %q", q)
		}
	}
}

func TestErrorRowReturnsMarkerError(t *testing.T) {
	exec := markedExecutor{logger: *DiscardLogger()}
	row := exec.QueryRow(context.Background(), "select 1")
	if err := row.Scan(); err == nil {
		t.Fatalf("expected marker error from row")
	}
}
