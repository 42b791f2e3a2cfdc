package ctxasm

import "github.com/arcanrun/arcane/message"

// CompactionReport summarizes what a CompactMessages call did.
type CompactionReport struct {
	DroppedCount int
	TokensBefore int
	TokensAfter  int
}

// CompactMessages implements the five-step compaction algorithm: if the
// message list already fits the budget it is returned unchanged; otherwise
// every system message and the most recent user message are always kept,
// and the remaining messages are admitted newest-to-oldest until the
// budget is exhausted. Admitted messages are returned in original order.
func CompactMessages(messages []message.ChatMessage, cfg Config) ([]message.ChatMessage, CompactionReport) {
	budget := cfg.InputBudget()

	tokensBefore := 0
	for _, m := range messages {
		tokensBefore += message.EstimateTokens(m.Content)
	}

	// Step 1: no-op if it already fits.
	if tokensBefore <= budget {
		return messages, CompactionReport{TokensBefore: tokensBefore, TokensAfter: tokensBefore}
	}

	// Step 2: identify fixed keepers — every system message, plus the most
	// recent user message.
	lastUserIdx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == message.RoleUser {
			lastUserIdx = i
			break
		}
	}

	kept := make([]bool, len(messages))
	keptTokens := 0
	for i, m := range messages {
		if m.Role == message.RoleSystem || i == lastUserIdx {
			kept[i] = true
			keptTokens += message.EstimateTokens(m.Content)
		}
	}

	// Step 3: remaining budget after fixed keepers.
	remaining := budget - keptTokens

	// Step 4: walk non-kept messages newest to oldest, admitting each if it
	// fits in the remaining budget.
	for i := len(messages) - 1; i >= 0; i-- {
		if kept[i] {
			continue
		}
		cost := message.EstimateTokens(messages[i].Content)
		if remaining < 0 {
			continue
		}
		if cost <= remaining {
			kept[i] = true
			remaining -= cost
		}
	}

	// Step 5: return admitted messages in original order, plus the report.
	out := make([]message.ChatMessage, 0, len(messages))
	tokensAfter := 0
	droppedCount := 0
	for i, m := range messages {
		if kept[i] {
			out = append(out, m)
			tokensAfter += message.EstimateTokens(m.Content)
		} else {
			droppedCount++
		}
	}

	return out, CompactionReport{
		DroppedCount: droppedCount,
		TokensBefore: tokensBefore,
		TokensAfter:  tokensAfter,
	}
}
