package domain

// Candidate is a story retrieved for one specific question. It lives for the
// duration of that question only.
type Candidate struct {
	Story Story   `json:"story"`
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

// Evaluation is the judgment model's verdict on one (question, candidate)
// pair. A response the model produced but the engine could not parse is kept
// as Failed with the raw text, rather than silently defaulted; Failed
// evaluations score 0 at selection time.
type Evaluation struct {
	RelevanceScore int    `json:"relevance_score"`
	Reasoning      string `json:"reasoning"`
	ShouldUse      bool   `json:"should_use"`

	Failed bool   `json:"failed,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

type AnswerSource string

const (
	SourcePrepared  AnswerSource = "PREPARED"
	SourceGenerated AnswerSource = "GENERATED"
)

// Decision is the terminal result for one question. Confidence always carries
// the best candidate's relevance score, even on the GENERATED branch, so the
// caller can see how close the stored material came.
type Decision struct {
	Answer              string       `json:"answer"`
	Source              AnswerSource `json:"source"`
	Confidence          int          `json:"confidence"`
	Reasoning           string       `json:"reasoning"`
	CandidatesEvaluated int          `json:"candidates_evaluated"`
	UsedContexts        int          `json:"used_contexts,omitempty"`
}
