// Package questions serves the Felix questionnaire. The bank is static
// content loaded once at startup; which questions a client shows, and
// in what order, is presentation the core does not control.
package questions

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

// Question is one questionnaire entry.
type Question struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Liner  string `json:"liner,omitempty"`  // short framing line shown above the question
	Probes string `json:"probes,omitempty"` // which sin the author expected it to probe, display only
}

// Bank is the loaded question bank.
type Bank struct {
	Questions []Question `json:"questions"`
}

// LoadBank reads the question bank JSON file.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank: %w", err)
	}
	var bank Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}
	if len(bank.Questions) == 0 {
		return nil, fmt.Errorf("question bank %s is empty", path)
	}
	for i, q := range bank.Questions {
		if q.ID == "" || q.Text == "" {
			return nil, fmt.Errorf("question bank %s: entry %d missing id or text", path, i)
		}
	}
	return &bank, nil
}

// All returns every question in bank order.
func (b *Bank) All() []Question {
	out := make([]Question, len(b.Questions))
	copy(out, b.Questions)
	return out
}

// Pick returns n random questions without repetition; n larger than the
// bank returns the whole bank shuffled.
func (b *Bank) Pick(n int) []Question {
	all := b.All()
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all
}
