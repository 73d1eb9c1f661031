package engine

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/felixlab/polysin/ai"
	"github.com/felixlab/polysin/core"
	"github.com/felixlab/polysin/traits"
)

// Assimilator turns an oracle response into at most one library commit.
// The oracle's is_new_discovery flag is treated as a hint only: reuse
// claims are checked against the snapshot, and new discoveries are
// re-checked against the live store at commit time, so a concurrent
// call proposing the same key can never produce a second entry.
type Assimilator struct {
	store traits.Store
}

// NewAssimilator returns an Assimilator over the given store.
func NewAssimilator(store traits.Store) *Assimilator {
	return &Assimilator{store: store}
}

// Outcome is the result of assimilating one oracle response.
type Outcome struct {
	Assignments []core.AssignmentRecord
	NewKeys     []string
	UsedKeys    []string
}

// pending accumulates validated discoveries for one key within a batch.
// The first definition wins; weight vectors and complexity scores of
// duplicates are averaged.
type pending struct {
	first      core.Trait
	weightSums map[string]float64
	scoreSum   float64
	count      int
}

func (p *pending) add(t core.Trait) {
	if p.count == 0 {
		p.first = t
		p.weightSums = make(map[string]float64, len(t.SinWeights))
	}
	for sin, w := range t.SinWeights {
		p.weightSums[sin] += w
	}
	p.scoreSum += t.ComplexityScore
	p.count++
}

// merged produces the final trait: first definition, averaged weights
// re-normalized to sum 1, averaged complexity.
func (p *pending) merged() core.Trait {
	t := p.first.Clone()
	if p.count > 1 {
		var sum float64
		for _, w := range p.weightSums {
			sum += w
		}
		weights := make(map[string]float64, len(p.weightSums))
		for sin, w := range p.weightSums {
			weights[sin] = w / sum
		}
		t.SinWeights = weights
		t.ComplexityScore = p.scoreSum / float64(p.count)
	}
	return t
}

// Assimilate validates the response against the current snapshot,
// dedupes within the batch, commits surviving discoveries, and returns
// the final assignment records plus the newly-added and used key sets.
func (a *Assimilator) Assimilate(resp *ai.Response) (*Outcome, error) {
	snapshot := a.store.Snapshot()

	assignments := make([]core.AssignmentRecord, len(resp.AnalysisLog))
	// assignment index -> pending key, for records that ride on a
	// discovery and must follow wherever that key resolves.
	pendingRefs := make(map[int]string)
	discoveries := make(map[string]*pending)

	for i, item := range resp.AnalysisLog {
		rec := core.AssignmentRecord{
			QuestionID: item.QuestionID,
			AnswerText: item.AnswerText,
			Rationale:  item.MatchReasoning,
		}

		key := traits.NormalizeKey(item.AssignedTrait)
		switch {
		case !item.IsNewDiscovery:
			// Reuse claim: trust it only if the key actually exists.
			if key != "" && snapshot.Has(key) {
				rec.TraitKey = key
				rec.Resolved = true
			} else {
				log.Printf("assimilate: oracle referenced unknown trait %q, leaving answer unresolved", item.AssignedTrait)
			}

		case key == "":
			log.Printf("assimilate: discovery with unusable key %q rejected", item.AssignedTrait)

		case snapshot.Has(key):
			// Oracle thinks it is new but the library already knows it.
			rec.TraitKey = key
			rec.Resolved = true

		default:
			cand, ok := lookupCandidate(resp.NewTraitDefinitions, item.AssignedTrait, key)
			if !ok {
				log.Printf("assimilate: discovery %q has no attached definition, leaving answer unresolved", key)
				break
			}
			trait, err := traits.Validate(item.AssignedTrait, cand)
			if err != nil {
				log.Printf("assimilate: discovery rejected: %v", err)
				break
			}
			p := discoveries[trait.Key]
			if p == nil {
				p = &pending{}
				discoveries[trait.Key] = p
			}
			p.add(trait)
			pendingRefs[i] = trait.Key
		}

		assignments[i] = rec
	}

	accepted, err := a.commitDiscoveries(discoveries)
	if err != nil {
		return nil, err
	}

	// Settle assignments that were waiting on a discovery. Whether the
	// key was committed by us or had just been committed by a
	// concurrent call, the entry now exists either way.
	for i, key := range pendingRefs {
		assignments[i].TraitKey = key
		assignments[i].Resolved = true
		assignments[i].IsNew = accepted[key]
	}

	out := &Outcome{Assignments: assignments}
	used := make(map[string]bool)
	for _, rec := range assignments {
		if !rec.Resolved {
			continue
		}
		if !used[rec.TraitKey] {
			used[rec.TraitKey] = true
			out.UsedKeys = append(out.UsedKeys, rec.TraitKey)
		}
	}
	for key, wasNew := range accepted {
		if wasNew {
			out.NewKeys = append(out.NewKeys, key)
		}
	}
	sort.Strings(out.NewKeys)
	return out, nil
}

// commitDiscoveries re-checks every surviving key against the live
// store and commits the remainder in a single call. A KeyConflict from
// a racing commit drops the conflicting keys and retries the corrected
// batch once. The returned map holds every discovery key, true when it
// was committed by this call, false when it was redirected to an entry
// another call had just created.
func (a *Assimilator) commitDiscoveries(discoveries map[string]*pending) (map[string]bool, error) {
	accepted := make(map[string]bool, len(discoveries))
	if len(discoveries) == 0 {
		return accepted, nil
	}

	batch := make(map[string]core.Trait, len(discoveries))
	live := a.store.Snapshot()
	for key, p := range discoveries {
		if live.Has(key) {
			accepted[key] = false
			continue
		}
		batch[key] = p.merged()
	}

	for attempt := 0; len(batch) > 0; attempt++ {
		_, err := a.store.Commit(batch)
		if err == nil {
			for key := range batch {
				accepted[key] = true
			}
			break
		}
		if !errors.Is(err, core.ErrKeyConflict) || attempt > 0 {
			return nil, fmt.Errorf("committing discoveries: %w", err)
		}
		// A concurrent call won the race for at least one key. Drop the
		// keys that now exist and retry the rest as a corrected batch.
		live = a.store.Snapshot()
		for key := range batch {
			if live.Has(key) {
				accepted[key] = false
				delete(batch, key)
			}
		}
	}
	return accepted, nil
}

// lookupCandidate finds the proposed definition for a discovery. The
// oracle keys the definitions map by the trait key it assigned, but
// models are sloppy about exact casing, so the normalized slug is
// accepted as well.
func lookupCandidate(defs map[string]core.TraitCandidate, rawKey, slug string) (core.TraitCandidate, bool) {
	if cand, ok := defs[rawKey]; ok {
		return cand, true
	}
	for defKey, cand := range defs {
		if traits.NormalizeKey(defKey) == slug {
			return cand, true
		}
	}
	return core.TraitCandidate{}, false
}
