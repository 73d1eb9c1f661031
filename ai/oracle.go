// Package ai talks to the external LLM that classifies answers against
// the trait library. The model is an untrusted oracle: everything it
// returns is re-validated before it can touch the library.
package ai

import (
	"context"

	"github.com/felixlab/polysin/core"
)

// Assignment is one entry of the oracle's analysis log.
type Assignment struct {
	QuestionID     string `json:"question_id"`
	AnswerText     string `json:"answer_text"`
	AssignedTrait  string `json:"assigned_trait"`
	IsNewDiscovery bool   `json:"is_new_discovery"`
	MatchReasoning string `json:"match_reasoning"`
}

// Response is the oracle's parsed output: per-answer assignments plus
// proposed definitions for any trait flagged as a new discovery.
type Response struct {
	AnalysisLog         []Assignment                   `json:"analysis_log"`
	NewTraitDefinitions map[string]core.TraitCandidate `json:"new_trait_definitions"`
}

// Oracle classifies a batch of answers given the current knowledge
// digest. Implementations must honor ctx cancellation; the caller
// bounds every invocation with a deadline.
type Oracle interface {
	Analyze(ctx context.Context, digest string, answers []core.AnswerRecord) (*Response, error)
}
