package domain

import "strings"

// KeyPrefix namespaces every key vecrag writes to a shared key-value store.
const KeyPrefix = "vecrag:"

// Metadata describes one stored vector. It is attached positionally at insert time.
type Metadata struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Normalized returns m with invalid UTF-8 in its strings replaced by U+FFFD,
// the form every snapshot encoder stores.
func (m Metadata) Normalized() Metadata {
	m.DocID = strings.ToValidUTF8(m.DocID, "\uFFFD")
	m.Filename = strings.ToValidUTF8(m.Filename, "\uFFFD")
	m.Text = strings.ToValidUTF8(m.Text, "\uFFFD")
	return m
}

// DocumentInfo summarizes one indexed document, derived from its chunk metadata.
// IndexedTokens sums the chunk token counts, so overlapping tokens count once
// per chunk they appear in.
type DocumentInfo struct {
	DocID         string
	Filename      string
	ChunkCount    int
	IndexedTokens int
}

// Hit is a single search result: the metadata of a stored vector plus its
// squared Euclidean distance to the query and its 1-based rank.
type Hit struct {
	Metadata
	Distance float64
	Rank     int
}
