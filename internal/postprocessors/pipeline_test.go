package postprocessors

import (
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if len(p.processors) != 0 {
		t.Errorf("expected empty processors, got %d", len(p.processors))
	}
}

func TestDefaultPipeline(t *testing.T) {
	names := DefaultPipeline().List()
	if len(names) != 1 || names[0] != "paragraph_splitter" {
		t.Errorf("unexpected processors: %v", names)
	}
}

func TestPipeline_Process_EmptyContent(t *testing.T) {
	chunks := DefaultPipeline().Process("")
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestPipeline_Process_OnlyBlankLines(t *testing.T) {
	chunks := DefaultPipeline().Process("\n   \n\t\n")
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestPipeline_Process_Paragraphs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"single line", "Hello, world!", []string{"Hello, world!"}},
		{"trims lines", "  first  \n\tsecond\t", []string{"first", "second"}},
		{"drops blank lines", "a\n\n\nb\n   \nc", []string{"a", "b", "c"}},
		{"windows line endings", "one\r\ntwo\r\n", []string{"one", "two"}},
		{"keeps inner spacing", "a  b   c", []string{"a  b   c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paragraphs(DefaultPipeline(), tt.content)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPipeline_Process_PositionsAndOffsets(t *testing.T) {
	content := "first\n\n  second  \nthird"
	chunks := DefaultPipeline().Process(content)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, chunk.Position)
		}
		if got := content[chunk.StartOffset:chunk.EndOffset]; got != chunk.Content {
			t.Errorf("chunk %d: offsets select %q, content is %q", i, got, chunk.Content)
		}
	}
}

type upperCaser struct{}

func (upperCaser) Process(chunks []driven.Chunk) []driven.Chunk {
	for i := range chunks {
		chunks[i].Content = strings.ToUpper(chunks[i].Content)
	}
	return chunks
}
func (upperCaser) Name() string { return "upper" }
func (upperCaser) Order() int   { return 1 }

func TestPipeline_OrdersProcessors(t *testing.T) {
	p := NewPipeline()
	p.Add(upperCaser{})
	p.Add(NewParagraphSplitter())

	names := p.List()
	if names[0] != "upper" {
		t.Fatalf("List should report insertion order before first run, got %v", names)
	}

	got := Paragraphs(p, "a\nb")
	if strings.Join(got, ",") != "A,B" {
		t.Errorf("expected splitter to run first, got %v", got)
	}
	if p.List()[0] != "paragraph_splitter" {
		t.Errorf("expected sorted processors after run, got %v", p.List())
	}
}
