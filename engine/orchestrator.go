package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixlab/polysin/ai"
	"github.com/felixlab/polysin/core"
	"github.com/felixlab/polysin/traits"
)

// DefaultOracleTimeout bounds a single oracle invocation.
const DefaultOracleTimeout = 60 * time.Second

// History records completed analyses. Failures here never fail the
// analysis itself.
type History interface {
	SaveAnalysis(result *core.AnalysisResult) error
}

// Events receives notifications after a successful commit.
type Events interface {
	TraitLearned(trait core.Trait)
	AnalysisCompleted(result *core.AnalysisResult)
}

// Orchestrator drives one analysis end to end: digest, oracle call,
// strict parse, assimilation, result assembly.
type Orchestrator struct {
	store       traits.Store
	oracle      ai.Oracle
	assimilator *Assimilator
	history     History
	events      Events
	timeout     time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHistory attaches an analysis history sink.
func WithHistory(h History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithEvents attaches an event sink.
func WithEvents(e Events) Option {
	return func(o *Orchestrator) { o.events = e }
}

// WithOracleTimeout overrides the per-call oracle deadline.
func WithOracleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewOrchestrator wires an orchestrator over the given store and oracle.
func NewOrchestrator(store traits.Store, oracle ai.Oracle, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		oracle:      oracle,
		assimilator: NewAssimilator(store),
		timeout:     DefaultOracleTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs the full analysis for one answer batch. Blank answers
// are dropped before the oracle sees them; transport and shape failures
// abort the whole request, while per-item validation failures only
// degrade the offending answer to unresolved.
func (o *Orchestrator) Analyze(ctx context.Context, answers []core.AnswerRecord) (*core.AnalysisResult, error) {
	filtered := make([]core.AnswerRecord, 0, len(answers))
	for _, a := range answers {
		if strings.TrimSpace(a.AnswerText) != "" {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == 0 {
		return nil, core.ErrNoAnswers
	}

	digest := traits.Digest(o.store.Snapshot())

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.oracle.Analyze(callCtx, digest, filtered)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", core.ErrOracleTimeout, err)
		}
		return nil, err
	}

	out, err := o.assimilator.Assimilate(resp)
	if err != nil {
		return nil, err
	}

	result := &core.AnalysisResult{
		ID:            uuid.New().String(),
		Assignments:   out.Assignments,
		NewTraitKeys:  out.NewKeys,
		UsedTraitKeys: out.UsedKeys,
		CreatedAt:     time.Now().UTC(),
	}

	if o.history != nil {
		if err := o.history.SaveAnalysis(result); err != nil {
			log.Printf("analysis %s: history write failed: %v", result.ID, err)
		}
	}
	o.publish(result)

	return result, nil
}

// Library returns a read-only snapshot for display.
func (o *Orchestrator) Library() core.TraitLibrary {
	return o.store.Snapshot()
}

func (o *Orchestrator) publish(result *core.AnalysisResult) {
	if o.events == nil {
		return
	}
	if len(result.NewTraitKeys) > 0 {
		lib := o.store.Snapshot()
		for _, key := range result.NewTraitKeys {
			if t, ok := lib.Traits[key]; ok {
				o.events.TraitLearned(t)
			}
		}
	}
	o.events.AnalysisCompleted(result)
}
