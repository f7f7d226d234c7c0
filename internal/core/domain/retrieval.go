package domain

// RetrievalMethodResult summarizes one strategy's output for offline
// comparison.
type RetrievalMethodResult struct {
	Docs        []Story `json:"docs"`
	Count       int     `json:"count"`
	TotalLength int     `json:"total_length"`
}

// RetrievalComparison contrasts basic and diversity-aware retrieval for the
// same query. Overlap is the size of the content-set intersection.
type RetrievalComparison struct {
	Basic          RetrievalMethodResult `json:"basic"`
	DiversityAware RetrievalMethodResult `json:"diversity_aware"`
	Overlap        int                   `json:"overlap"`
}
