package driven

// PostProcessor transforms document content into the chunks that get embedded.
// Processors form a pipeline: ParagraphSplitter -> MaxLength -> etc.
type PostProcessor interface {
	// Process applies post-processing to content chunks.
	// The first processor receives a single chunk with the full content.
	// Subsequent processors receive the chunks from the previous stage.
	Process(chunks []Chunk) []Chunk

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	// The paragraph splitter is 0, subsequent processors increment from there.
	Order() int
}

// Chunk represents a piece of document content for processing.
// After splitting, one chunk is one paragraph and Position is its paragraph index.
type Chunk struct {
	// Content is the text content of the chunk
	Content string

	// Position is the chunk index within the document (0-based)
	Position int

	// StartOffset is the byte offset from document start
	StartOffset int

	// EndOffset is the byte offset for chunk end
	EndOffset int
}

// PostProcessorPipeline chains multiple post-processors in order.
type PostProcessorPipeline interface {
	// Process applies all processors in order.
	// Input is the raw document content.
	// Output is the paragraphs ready for embedding/indexing.
	Process(content string) []Chunk

	// Add adds a processor to the pipeline.
	// Processors are sorted by Order() before processing.
	Add(processor PostProcessor)

	// List returns processor names in order.
	List() []string
}
