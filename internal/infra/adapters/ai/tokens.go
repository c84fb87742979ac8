package ai

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"chat-session-relay/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TokenEstimator = (*TiktokenEstimator)(nil)

// perMessageOverhead approximates the framing tokens the chat format wraps
// around every message (role markers and separators).
const perMessageOverhead = 4

// TiktokenEstimator counts prompt tokens with the model's BPE vocabulary and
// degrades to a bytes/4 heuristic for models tiktoken does not know.
// Estimates feed observability only and never fail a call.
type TiktokenEstimator struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

func NewTiktokenEstimator() *TiktokenEstimator {
	return &TiktokenEstimator{encoders: make(map[string]*tiktoken.Tiktoken)}
}

func (t *TiktokenEstimator) EstimateTokens(model string, messages []adapter.Message) int {
	enc := t.encoderFor(model)
	total := 0
	for _, m := range messages {
		total += perMessageOverhead
		if enc != nil {
			total += len(enc.Encode(m.Content, nil, nil))
			continue
		}
		total += len(m.Content)/4 + 1
	}
	return total
}

// encoderFor caches one encoder per model. A nil entry records that the
// lookup already failed so the heuristic path skips retrying it.
func (t *TiktokenEstimator) encoderFor(model string) *tiktoken.Tiktoken {
	t.mu.Lock()
	defer t.mu.Unlock()
	if enc, ok := t.encoders[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc = nil
	}
	t.encoders[model] = enc
	return enc
}
