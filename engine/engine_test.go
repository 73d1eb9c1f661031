package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/felixlab/polysin/ai"
	"github.com/felixlab/polysin/core"
	"github.com/felixlab/polysin/traits"
)

// stubOracle returns canned responses, in order, one per call.
type stubOracle struct {
	mu        sync.Mutex
	responses []*ai.Response
	err       error
	calls     int
}

func (s *stubOracle) Analyze(ctx context.Context, digest string, answers []core.AnswerRecord) (*ai.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

// slowOracle blocks until the context is done.
type slowOracle struct{}

func (slowOracle) Analyze(ctx context.Context, digest string, answers []core.AnswerRecord) (*ai.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type capturedEvents struct {
	mu       sync.Mutex
	learned  []string
	analyses int
}

func (c *capturedEvents) TraitLearned(trait core.Trait) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.learned = append(c.learned, trait.Key)
}

func (c *capturedEvents) AnalysisCompleted(*core.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyses++
}

func newTestStore(t *testing.T) *traits.FileStore {
	t.Helper()
	store, err := traits.OpenFileStore(filepath.Join(t.TempDir(), "trait_library.json"), traits.SeedLibrary())
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	return store
}

func score(v float64) *float64 { return &v }

func discoveryResponse() *ai.Response {
	return &ai.Response{
		AnalysisLog: []ai.Assignment{{
			QuestionID:     "q1",
			AnswerText:     "I steal to feed my family",
			AssignedTrait:  "altruistic_theft",
			IsNewDiscovery: true,
			MatchReasoning: "Provision driven by loyalty, not accumulation",
		}},
		NewTraitDefinitions: map[string]core.TraitCandidate{
			"altruistic_theft": {
				Definition:      "Taking property to provide for dependents",
				SinWeights:      map[string]float64{core.SinGreed: 0.3, core.SinPride: 0.2, core.SinEnvy: 0.5},
				ComplexityScore: score(0.8),
			},
		},
	}
}

func reuseResponse(key string) *ai.Response {
	return &ai.Response{
		AnalysisLog: []ai.Assignment{{
			QuestionID:     "q1",
			AnswerText:     "I steal to feed my family",
			AssignedTrait:  key,
			IsNewDiscovery: false,
			MatchReasoning: "Already covered by memory",
		}},
	}
}

func answers() []core.AnswerRecord {
	return []core.AnswerRecord{{QuestionID: "q1", AnswerText: "I steal to feed my family"}}
}

func TestAnalyzeLearnsNewTrait(t *testing.T) {
	store := newTestStore(t)
	events := &capturedEvents{}
	o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{discoveryResponse()}},
		WithEvents(events))

	result, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.NewTraitKeys) != 1 || result.NewTraitKeys[0] != "altruistic_theft" {
		t.Errorf("NewTraitKeys = %v, want [altruistic_theft]", result.NewTraitKeys)
	}
	if len(result.UsedTraitKeys) != 1 || result.UsedTraitKeys[0] != "altruistic_theft" {
		t.Errorf("UsedTraitKeys = %v, want [altruistic_theft]", result.UsedTraitKeys)
	}
	if len(result.Assignments) != 1 || !result.Assignments[0].Resolved || !result.Assignments[0].IsNew {
		t.Errorf("assignment not resolved as new: %+v", result.Assignments)
	}

	lib := store.Snapshot()
	if len(lib.Traits) != 3 {
		t.Errorf("library has %d traits, want 3", len(lib.Traits))
	}
	if !lib.Has("altruistic_theft") {
		t.Error("altruistic_theft not committed")
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.learned) != 1 || events.learned[0] != "altruistic_theft" {
		t.Errorf("learned events = %v", events.learned)
	}
	if events.analyses != 1 {
		t.Errorf("analysis events = %d, want 1", events.analyses)
	}
}

func TestAnalyzeIdempotentResubmission(t *testing.T) {
	store := newTestStore(t)
	oracle := &stubOracle{responses: []*ai.Response{
		discoveryResponse(),
		reuseResponse("altruistic_theft"),
	}}
	o := NewOrchestrator(store, oracle)

	first, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("first Analyze failed: %v", err)
	}
	second, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}

	if first.Assignments[0].TraitKey != second.Assignments[0].TraitKey {
		t.Error("same answer resolved to different traits")
	}
	if len(second.NewTraitKeys) != 0 {
		t.Errorf("second call added traits: %v", second.NewTraitKeys)
	}
	if len(second.UsedTraitKeys) != 1 || second.UsedTraitKeys[0] != "altruistic_theft" {
		t.Errorf("second UsedTraitKeys = %v", second.UsedTraitKeys)
	}
	if len(store.Snapshot().Traits) != 3 {
		t.Error("library grew on resubmission")
	}
}

func TestAnalyzeUnknownReuseClaimIsUnresolved(t *testing.T) {
	store := newTestStore(t)
	o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{
		reuseResponse("hallucinated_trait"),
	}})

	result, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	rec := result.Assignments[0]
	if rec.Resolved || rec.TraitKey != "" {
		t.Errorf("hallucinated reuse must stay unresolved: %+v", rec)
	}
	if len(result.UsedTraitKeys) != 0 || len(result.NewTraitKeys) != 0 {
		t.Errorf("nothing should be used or added: %+v", result)
	}
	if len(store.Snapshot().Traits) != 2 {
		t.Error("library changed on a hallucinated reuse")
	}
}

func TestAnalyzeInvalidDiscoveryIsRejected(t *testing.T) {
	resp := discoveryResponse()
	resp.NewTraitDefinitions["altruistic_theft"] = core.TraitCandidate{
		Definition: "d",
		SinWeights: map[string]float64{"hubris": 1},
	}
	store := newTestStore(t)
	o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{resp}})

	result, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Assignments[0].Resolved {
		t.Error("invalid discovery must leave the answer unresolved")
	}
	if len(store.Snapshot().Traits) != 2 {
		t.Error("invalid discovery reached the library")
	}
}

func TestAnalyzeDiscoveryWithoutDefinition(t *testing.T) {
	resp := discoveryResponse()
	resp.NewTraitDefinitions = nil
	store := newTestStore(t)
	o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{resp}})

	result, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Assignments[0].Resolved {
		t.Error("discovery without definition must stay unresolved")
	}
}

func TestAnalyzeDiscoveryOfKnownKeyRedirects(t *testing.T) {
	// Oracle claims status_signaling is new; it already exists.
	resp := &ai.Response{
		AnalysisLog: []ai.Assignment{{
			QuestionID:     "q1",
			AnswerText:     "I bought a watch I cannot afford",
			AssignedTrait:  "Status Signaling",
			IsNewDiscovery: true,
		}},
		NewTraitDefinitions: map[string]core.TraitCandidate{
			"Status Signaling": {
				Definition: "dup",
				SinWeights: map[string]float64{core.SinPride: 1},
			},
		},
	}
	store := newTestStore(t)
	o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{resp}})

	result, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	rec := result.Assignments[0]
	if !rec.Resolved || rec.TraitKey != "status_signaling" || rec.IsNew {
		t.Errorf("want redirect to existing entry, got %+v", rec)
	}
	if len(result.NewTraitKeys) != 0 {
		t.Errorf("nothing should be added: %v", result.NewTraitKeys)
	}
	if store.Snapshot().Traits["status_signaling"].Definition == "dup" {
		t.Error("existing definition was overwritten")
	}
}

func TestAnalyzeWithinBatchDuplicatesMerge(t *testing.T) {
	resp := &ai.Response{
		AnalysisLog: []ai.Assignment{
			{QuestionID: "q1", AnswerText: "a", AssignedTrait: "quiet_defiance", IsNewDiscovery: true},
			{QuestionID: "q2", AnswerText: "b", AssignedTrait: "Quiet Defiance", IsNewDiscovery: true},
		},
		NewTraitDefinitions: map[string]core.TraitCandidate{
			"quiet_defiance": {
				Definition: "first definition",
				SinWeights: map[string]float64{core.SinWrath: 1.0},
			},
			"Quiet Defiance": {
				Definition: "second definition",
				SinWeights: map[string]float64{core.SinSloth: 1.0},
			},
		},
	}
	store := newTestStore(t)
	o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{resp}})

	result, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.NewTraitKeys) != 1 || result.NewTraitKeys[0] != "quiet_defiance" {
		t.Fatalf("NewTraitKeys = %v, want [quiet_defiance]", result.NewTraitKeys)
	}
	for _, rec := range result.Assignments {
		if !rec.Resolved || rec.TraitKey != "quiet_defiance" {
			t.Errorf("assignment not merged onto quiet_defiance: %+v", rec)
		}
	}

	merged := store.Snapshot().Traits["quiet_defiance"]
	if merged.Definition != "first definition" {
		t.Errorf("definition = %q, want the first occurrence's", merged.Definition)
	}
	if w := merged.SinWeights[core.SinWrath]; w < 0.49 || w > 0.51 {
		t.Errorf("wrath = %f, want ~0.5 after averaging", w)
	}
	if w := merged.SinWeights[core.SinSloth]; w < 0.49 || w > 0.51 {
		t.Errorf("sloth = %f, want ~0.5 after averaging", w)
	}
}

func TestAnalyzeNoAnswers(t *testing.T) {
	o := NewOrchestrator(newTestStore(t), &stubOracle{})
	for _, in := range [][]core.AnswerRecord{
		nil,
		{},
		{{QuestionID: "q1", AnswerText: "   "}, {QuestionID: "q2", AnswerText: ""}},
	} {
		if _, err := o.Analyze(context.Background(), in); !errors.Is(err, core.ErrNoAnswers) {
			t.Errorf("want ErrNoAnswers for %v, got %v", in, err)
		}
	}
}

func TestAnalyzeFiltersBlankAnswers(t *testing.T) {
	store := newTestStore(t)
	oracle := &stubOracle{responses: []*ai.Response{reuseResponse("status_signaling")}}
	o := NewOrchestrator(store, oracle)

	mixed := []core.AnswerRecord{
		{QuestionID: "q0", AnswerText: "  "},
		{QuestionID: "q1", AnswerText: "I bought a watch I cannot afford"},
	}
	if _, err := o.Analyze(context.Background(), mixed); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if oracle.calls != 1 {
		t.Errorf("oracle called %d times, want 1", oracle.calls)
	}
}

func TestAnalyzeOracleTimeout(t *testing.T) {
	store := newTestStore(t)
	o := NewOrchestrator(store, slowOracle{}, WithOracleTimeout(20*time.Millisecond))

	_, err := o.Analyze(context.Background(), answers())
	if !errors.Is(err, core.ErrOracleTimeout) {
		t.Fatalf("want ErrOracleTimeout, got %v", err)
	}
	if len(store.Snapshot().Traits) != 2 {
		t.Error("timeout must not mutate the library")
	}
}

func TestAnalyzeOracleFailure(t *testing.T) {
	store := newTestStore(t)
	o := NewOrchestrator(store, &stubOracle{err: core.ErrOracleFailed})

	if _, err := o.Analyze(context.Background(), answers()); !errors.Is(err, core.ErrOracleFailed) {
		t.Errorf("want ErrOracleFailed, got %v", err)
	}
	if len(store.Snapshot().Traits) != 2 {
		t.Error("oracle failure must not mutate the library")
	}
}

func TestConcurrentSameKeyDiscovery(t *testing.T) {
	store := newTestStore(t)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*core.AnalysisResult, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{discoveryResponse()}})
			results[i], errs[i] = o.Analyze(context.Background(), answers())
		}(i)
	}
	wg.Wait()

	newCount := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d failed: %v", i, errs[i])
		}
		rec := results[i].Assignments[0]
		if !rec.Resolved || rec.TraitKey != "altruistic_theft" {
			t.Errorf("call %d assignment = %+v, want altruistic_theft", i, rec)
		}
		newCount += len(results[i].NewTraitKeys)
	}
	if newCount != 1 {
		t.Errorf("%d calls reported a new trait, want exactly 1", newCount)
	}

	lib := store.Snapshot()
	if len(lib.Traits) != 3 {
		t.Errorf("library has %d traits, want 3", len(lib.Traits))
	}
}

func TestAnalyzePartialBatchSurvivesRejections(t *testing.T) {
	resp := &ai.Response{
		AnalysisLog: []ai.Assignment{
			{QuestionID: "q1", AnswerText: "a", AssignedTrait: "status_signaling", IsNewDiscovery: false},
			{QuestionID: "q2", AnswerText: "b", AssignedTrait: "broken_one", IsNewDiscovery: true},
			{QuestionID: "q3", AnswerText: "c", AssignedTrait: "valid_one", IsNewDiscovery: true},
		},
		NewTraitDefinitions: map[string]core.TraitCandidate{
			"broken_one": {Definition: "", SinWeights: map[string]float64{core.SinPride: 1}},
			"valid_one":  {Definition: "d", SinWeights: map[string]float64{core.SinEnvy: 1}},
		},
	}
	store := newTestStore(t)
	o := NewOrchestrator(store, &stubOracle{responses: []*ai.Response{resp}})

	result, err := o.Analyze(context.Background(), answers())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	byQ := map[string]core.AssignmentRecord{}
	for _, rec := range result.Assignments {
		byQ[rec.QuestionID] = rec
	}
	if !byQ["q1"].Resolved || byQ["q1"].TraitKey != "status_signaling" {
		t.Errorf("q1 = %+v", byQ["q1"])
	}
	if byQ["q2"].Resolved {
		t.Errorf("q2 should be unresolved: %+v", byQ["q2"])
	}
	if !byQ["q3"].Resolved || byQ["q3"].TraitKey != "valid_one" || !byQ["q3"].IsNew {
		t.Errorf("q3 = %+v", byQ["q3"])
	}
	if len(result.NewTraitKeys) != 1 || result.NewTraitKeys[0] != "valid_one" {
		t.Errorf("NewTraitKeys = %v", result.NewTraitKeys)
	}
}
