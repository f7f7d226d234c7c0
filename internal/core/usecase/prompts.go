package usecase

import (
	"fmt"
	"strings"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// The evaluation prompt is a fixed contract: the judgment model must return a
// single JSON object with exactly relevance_score, reasoning and should_use.
const evaluationPromptTemplate = `You are evaluating whether a prepared answer is suitable for an interview question.

Interview Question: %s

Prepared Answer: %s

Evaluate this answer on a scale of 1-10:
- 9-10: Perfect match, directly answers the question
- 7-8: Good match, relevant but might need minor adjustments
- 5-6: Partially relevant, covers some aspects
- 3-4: Tangentially related but not a good answer
- 1-2: Not relevant at all

Consider:
- Does it address the core intent of the question?
- Is it specific enough or too generic?
- Would the interviewer be satisfied with this answer?
- Does it cover the right time period/context?

Respond in JSON format:
{
    "relevance_score": <1-10>,
    "reasoning": "<brief explanation>",
    "should_use": <true/false>
}
`

func buildEvaluationPrompt(question, answer string) string {
	return fmt.Sprintf(evaluationPromptTemplate, question, answer)
}

const generationPromptTemplate = `You are helping someone prepare for an interview. They have prepared some materials, but none directly answer this specific question.

Using their prepared materials as context, generate a strong interview answer that:
1. Draws from their actual experiences mentioned in the context
2. Follows the STAR format (Situation, Task, Action, Result)
3. Includes specific metrics and details when available
4. Sounds natural and authentic
5. Is concise (2-3 minutes speaking time)

Interview Question: %s

Prepared Materials (for context):
%s

Generate a strong interview answer:`

const contextSeparator = "\n\n---\n\n"

func buildGenerationPrompt(question string, candidates []domain.Candidate) string {
	parts := make([]string, 0, len(candidates))
	for i, c := range candidates {
		parts = append(parts, fmt.Sprintf("Experience %d:\n%s", i+1, c.Story.Content))
	}
	context := strings.Join(parts, contextSeparator)
	if context == "" {
		context = "(no prepared materials available)"
	}
	return fmt.Sprintf(generationPromptTemplate, question, context)
}

// noRelevantContent is the sentinel the compression prompt asks for when a
// passage contains nothing useful for the query.
const noRelevantContent = "NO_RELEVANT_CONTENT"

const compressionPromptTemplate = `Given the following question and document, extract only the parts of the document that are relevant to answering the question. Keep the extracted text verbatim. If nothing in the document is relevant, reply with exactly %s.

Question: %s

Document:
%s

Relevant parts:`

func buildCompressionPrompt(query, text string) string {
	return fmt.Sprintf(compressionPromptTemplate, noRelevantContent, query, text)
}
