package communication

import (
	"log"

	"github.com/felixlab/polysin/core"
)

// Notifier fans engine events out to WebSocket clients and the NATS
// bus. Either sink may be nil.
type Notifier struct {
	ws  *WSManager
	bus *Bus
}

// NewNotifier wires a notifier over the given sinks.
func NewNotifier(ws *WSManager, bus *Bus) *Notifier {
	return &Notifier{ws: ws, bus: bus}
}

// TraitLearned announces a newly committed trait.
func (n *Notifier) TraitLearned(trait core.Trait) {
	if n.ws != nil {
		n.ws.Broadcast(EventTraitLearned, trait)
	}
	if n.bus != nil {
		if err := n.bus.Publish(SubjectTraitLearned, trait); err != nil {
			log.Printf("NATS publish %s failed: %v", SubjectTraitLearned, err)
		}
	}
}

// AnalysisCompleted announces a finished analysis.
func (n *Notifier) AnalysisCompleted(result *core.AnalysisResult) {
	if n.ws != nil {
		n.ws.Broadcast(EventAnalysisCompleted, result)
	}
	if n.bus != nil {
		if err := n.bus.Publish(SubjectAnalysisCompleted, result); err != nil {
			log.Printf("NATS publish %s failed: %v", SubjectAnalysisCompleted, err)
		}
	}
}
