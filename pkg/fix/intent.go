package fix

import (
	"encoding/hex"
	"encoding/json"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"lukechampine.com/blake3"
)

// Intent is a validated edit ready for the external writer.
type Intent struct {
	core.Edit
	// FilePath is the properties file the writer should edit; empty for docs block edits
	FilePath string `json:"file_path,omitempty"`
}

// Result is what the applier hands back: intents to write and findings for
// everything it refused to emit.
type Result struct {
	Intents  []Intent       `json:"intents"`
	Findings []core.Finding `json:"findings,omitempty"`
}

// Digest fingerprints the intent stream. Two runs over the same inputs
// produce the same digest.
func (r Result) Digest() string {
	h := blake3.New(32, nil)
	enc := json.NewEncoder(h)
	for _, in := range r.Intents {
		// Encoding a plain struct of strings cannot fail.
		_ = enc.Encode(in)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HasUnresolved reports whether conflicts or skipped structural edits remain.
func (r Result) HasUnresolved() bool {
	for _, f := range r.Findings {
		if f.RuleID == RuleConflict || f.RuleID == RuleUnsafeSkipped || f.RuleID == RuleInvalidEdit {
			return true
		}
	}
	return false
}

// Counts tallies intents per edit kind.
func (r Result) Counts() map[core.EditKind]int {
	counts := make(map[core.EditKind]int)
	for _, in := range r.Intents {
		counts[in.Kind]++
	}
	return counts
}
