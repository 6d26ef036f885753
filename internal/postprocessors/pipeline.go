package postprocessors

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains post-processors in order, starting with a ParagraphSplitter.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order and numbers the surviving chunks from 0.
// The position of a chunk is the paragraph index used in its vector ID.
func (p *Pipeline) Process(content string) []driven.Chunk {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	// Start with a single chunk containing all content
	chunks := []driven.Chunk{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   len(content),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}

	result := chunks[:0]
	for _, chunk := range chunks {
		if chunk.Content == "" {
			continue
		}
		chunk.Position = len(result)
		result = append(result, chunk)
	}
	return result
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline that splits documents into paragraphs.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.Add(NewParagraphSplitter())
	return p
}

// ParagraphSplitter turns every non-blank line into one chunk.
// Lines are trimmed; blank lines are dropped.
type ParagraphSplitter struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*ParagraphSplitter)(nil)

// NewParagraphSplitter creates a new paragraph splitter.
func NewParagraphSplitter() *ParagraphSplitter {
	return &ParagraphSplitter{}
}

// Process splits each chunk on newlines.
func (s *ParagraphSplitter) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	for _, chunk := range chunks {
		offset := chunk.StartOffset
		for _, line := range strings.Split(chunk.Content, "\n") {
			lineStart := offset
			offset += len(line) + 1

			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			start := lineStart + strings.Index(line, trimmed)
			result = append(result, driven.Chunk{
				Content:     trimmed,
				Position:    len(result),
				StartOffset: start,
				EndOffset:   start + len(trimmed),
			})
		}
	}
	return result
}

// Name returns the processor name.
func (s *ParagraphSplitter) Name() string {
	return "paragraph_splitter"
}

// Order returns 0 - splitting happens first.
func (s *ParagraphSplitter) Order() int {
	return 0
}

// Paragraphs returns the paragraph texts of content in order.
func Paragraphs(pipeline driven.PostProcessorPipeline, content string) []string {
	chunks := pipeline.Process(content)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
