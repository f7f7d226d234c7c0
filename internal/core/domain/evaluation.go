package domain

import "time"

// RetrievalMetrics measures one retrieval against a ground-truth relevant set.
type RetrievalMetrics struct {
	PrecisionAtK float64 `json:"precision_at_k"`
	RecallAtK    float64 `json:"recall_at_k"`
	F1           float64 `json:"f1_score"`
	MRR          float64 `json:"mrr"`
	NumRetrieved int     `json:"num_retrieved"`
	NumRelevant  int     `json:"num_relevant"`
}

// AnswerMetrics are ground-truth-free heuristics over a generated or reused
// answer, plus word-overlap similarity when ground truth exists.
type AnswerMetrics struct {
	AnswerLength          int     `json:"answer_length"`
	AnswerWords           int     `json:"answer_words"`
	ExpressesUncertainty  bool    `json:"expresses_uncertainty"`
	ContextOverlapRatio   float64 `json:"context_overlap_ratio"`
	GroundTruthSimilarity float64 `json:"ground_truth_similarity,omitempty"`
	HasGroundTruth        bool    `json:"has_ground_truth"`
}

type RetrievalAverages struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	MRR       float64 `json:"mrr"`
}

// EvaluationRun is one batch evaluation record. Runs are append-only.
type EvaluationRun struct {
	Timestamp        time.Time          `json:"timestamp"`
	NumQuestions     int                `json:"num_questions"`
	RetrievalMetrics []RetrievalMetrics `json:"retrieval_metrics"`
	AnswerMetrics    []AnswerMetrics    `json:"answer_metrics"`
	AvgRetrieval     RetrievalAverages  `json:"avg_retrieval"`
}

// GroundTruth is one entry of an evaluation dataset.
type GroundTruth struct {
	Question          string   `json:"question" yaml:"question"`
	GroundTruthAnswer string   `json:"ground_truth_answer" yaml:"ground_truth_answer"`
	RelevantDocIDs    []string `json:"relevant_doc_ids" yaml:"relevant_doc_ids"`
}
