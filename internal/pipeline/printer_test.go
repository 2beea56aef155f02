package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jittakal/sentimentetl/pkg/table"
)

func TestPrinter_Table(t *testing.T) {
	tb, err := table.FromColumns(
		&table.Column{Name: "label", Type: table.Int64, Values: []any{int64(1), nil}},
		&table.Column{Name: "top1", Type: table.String, Values: []any{"Zürich café opens a very long headline", "short"}},
		&table.Column{Name: "top2", Type: table.String, Values: []any{"a", "b"}},
	)
	if err != nil {
		t.Fatalf("FromColumns() error = %v", err)
	}

	var buf bytes.Buffer
	NewPrinter(&buf).Table(tb, 2, 12)
	out := buf.String()

	if !strings.Contains(out, "<null>") {
		t.Errorf("null cell not rendered:\n%s", out)
	}
	if strings.Contains(out, "very long headline") {
		t.Errorf("wide cell not truncated:\n%s", out)
	}
	if strings.Contains(out, "top2") {
		t.Errorf("hidden column printed:\n%s", out)
	}
	if !strings.Contains(out, "1 not shown") {
		t.Errorf("hidden column note missing:\n%s", out)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPrinter_NilWriter(t *testing.T) {
	p := NewPrinter(nil)
	p.Header("x")
	p.Bullet("k", 1)
}
