package vecrag

// IngestResult summarizes an indexed document.
type IngestResult struct {
	DocID       string
	ChunkCount  int
	TotalTokens int
}

// Source identifies a document that contributed context to an answer.
type Source struct {
	DocID      string
	Filename   string
	ChunkIndex int
}

// Answer is the outcome of Ask. Failed answers carry the error text in Text
// and no sources.
type Answer struct {
	QueryID string
	Text    string
	Sources []Source
	Failed  bool
}

// Document describes an indexed document. IndexedTokens sums the token counts
// of its chunks, so overlapping tokens are counted once per chunk.
type Document struct {
	DocID         string
	Filename      string
	ChunkCount    int
	IndexedTokens int
}

// Stats describes the index.
type Stats struct {
	TotalDocuments int
	TotalVectors   int
	Dimension      int
}
