package retrieval

import "time"

// RetrievedContext is one ranked snippet handed to the caller.
type RetrievedContext struct {
	Content    string
	SourceType string
	SourceID   string
	Similarity float64
	Metadata   map[string]any // nil when metadata is excluded
	ChunkIndex int
}

// RAGContext is the full artifact of one retrieval call. It is never
// persisted; the conversational agent consumes it and throws it away.
type RAGContext struct {
	Query            string
	Contexts         []RetrievedContext
	FormattedContext string
	TotalChunks      int
	AvgSimilarity    float64
	RetrievalTime    time.Duration
}
