package core

import "time"

// AnswerRecord is one submitted questionnaire answer.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	AnswerText string `json:"answer_text"`
}

// AssignmentRecord ties an answer to the trait it resolved to.
// Resolved is false when neither an existing trait nor a valid new
// discovery could account for the answer.
type AssignmentRecord struct {
	QuestionID string `json:"question_id"`
	AnswerText string `json:"answer_text"`
	TraitKey   string `json:"trait_key,omitempty"`
	IsNew      bool   `json:"is_new_discovery"`
	Resolved   bool   `json:"resolved"`
	Rationale  string `json:"rationale,omitempty"`
}

// TraitCandidate is an oracle-proposed trait definition before validation.
// ComplexityScore is a pointer so an absent score can default rather
// than read as zero.
type TraitCandidate struct {
	Definition      string             `json:"definition"`
	SinWeights      map[string]float64 `json:"sin_weights"`
	ComplexityScore *float64           `json:"complexity_score,omitempty"`
}

// AnalysisResult is what one analyze call returns to the caller.
type AnalysisResult struct {
	ID            string             `json:"id"`
	Assignments   []AssignmentRecord `json:"assignments"`
	NewTraitKeys  []string           `json:"newly_added_trait_keys"`
	UsedTraitKeys []string           `json:"used_trait_keys"`
	CreatedAt     time.Time          `json:"created_at"`
}
