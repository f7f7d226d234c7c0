package domain

// IndexPoint is one (story, embedding) entry destined for the vector store.
// The point ID is derived from the story content hash, so upserting the same
// content twice overwrites instead of growing the collection.
type IndexPoint struct {
	ID     string
	Vector []float32
	Story  Story
}

// ScoredStory is a search hit. Score follows the backend's similarity
// convention; with cosine distance higher means more similar, and the
// score-threshold filter in search uses that same direction.
type ScoredStory struct {
	Story  Story
	Score  float64
	Vector []float32
}

type IndexStats struct {
	CollectionName string `json:"collection_name"`
	DocumentCount  int    `json:"document_count"`
	EmbeddingModel string `json:"embedding_model"`
}
