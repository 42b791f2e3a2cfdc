package ctxasm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/ctxasm"
	"github.com/arcanrun/arcane/message"
)

func TestStaticSourceReturnsFixedBlocksForAnySession(t *testing.T) {
	src := ctxasm.NewStaticSource(ctxasm.ContextBlock{Kind: ctxasm.KindPersona, Content: "persona"})

	blocks, err := src.Blocks(context.Background(), "session-a")
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	other, err := src.Blocks(context.Background(), "session-b")
	require.NoError(t, err)
	assert.Equal(t, blocks, other)
}

func TestCompileContextDropsEmptyBlocks(t *testing.T) {
	out := ctxasm.CompileContext([]ctxasm.ContextBlock{
		{Kind: ctxasm.KindPersona, Content: "you are an agent", Priority: ctxasm.PersonaPriority},
		{Kind: ctxasm.KindTask, Content: "   "},
	}, ctxasm.Config{TotalBudget: 10_000})

	require.Len(t, out.Messages, 1)
	assert.Equal(t, "you are an agent", out.Messages[0])
}

func TestCompileContextOrdersByFixedAssemblyOrder(t *testing.T) {
	out := ctxasm.CompileContext([]ctxasm.ContextBlock{
		{Kind: ctxasm.KindTask, Content: "task block"},
		{Kind: ctxasm.KindPersona, Content: "persona block", Priority: ctxasm.PersonaPriority},
		{Kind: ctxasm.KindRules, Content: "rules block", Priority: 100},
	}, ctxasm.Config{TotalBudget: 10_000})

	require.Equal(t, []string{"persona block", "rules block", "task block"}, out.Messages)
	assert.Empty(t, out.DroppedKinds)
}

func TestCompileContextAdmitsByPriorityWhenOverBudget(t *testing.T) {
	long := strings.Repeat("x", 400) // ~104 tokens
	blocks := []ctxasm.ContextBlock{
		{Kind: ctxasm.KindPersona, Content: "persona", Priority: ctxasm.PersonaPriority},
		{Kind: ctxasm.KindRetrieval, Content: long, Priority: 10},
		{Kind: ctxasm.KindTask, Content: "high priority task", Priority: 200},
	}
	out := ctxasm.CompileContext(blocks, ctxasm.Config{TotalBudget: 30})

	assert.Contains(t, out.Messages, "persona")
	assert.Contains(t, out.Messages, "high priority task")
	assert.Contains(t, out.DroppedKinds, ctxasm.KindRetrieval)
}

func TestCompileContextNeverDropsPersonaEvenIfOversized(t *testing.T) {
	huge := strings.Repeat("p", 10_000)
	out := ctxasm.CompileContext([]ctxasm.ContextBlock{
		{Kind: ctxasm.KindPersona, Content: huge, Priority: ctxasm.PersonaPriority},
	}, ctxasm.Config{TotalBudget: 1})

	require.Len(t, out.Messages, 1)
	assert.Equal(t, huge, out.Messages[0])
	assert.Empty(t, out.DroppedKinds)
}

func TestCompactMessagesNoOpWhenUnderBudget(t *testing.T) {
	msgs := []message.ChatMessage{
		{Role: message.RoleSystem, Content: "sys"},
		{Role: message.RoleUser, Content: "hi"},
	}
	out, report := ctxasm.CompactMessages(msgs, ctxasm.Config{MaxContextTokens: 10_000})
	assert.Equal(t, msgs, out)
	assert.Zero(t, report.DroppedCount)
}

func TestCompactMessagesKeepsSystemAndLastUser(t *testing.T) {
	msgs := []message.ChatMessage{
		{Role: message.RoleSystem, Content: "system prompt"},
		{Role: message.RoleUser, Content: strings.Repeat("old", 200)},
		{Role: message.RoleAssistant, Content: strings.Repeat("old", 200)},
		{Role: message.RoleUser, Content: "newest request"},
	}
	out, report := ctxasm.CompactMessages(msgs, ctxasm.Config{MaxContextTokens: 40, ReserveOutputTokens: 0})

	require.NotEmpty(t, out)
	assert.Equal(t, message.RoleSystem, out[0].Role)
	assert.Equal(t, "newest request", out[len(out)-1].Content)
	assert.Positive(t, report.DroppedCount)
	assert.Greater(t, report.TokensBefore, report.TokensAfter)
}

func TestCompactMessagesPreservesOriginalOrderAmongAdmitted(t *testing.T) {
	msgs := []message.ChatMessage{
		{Role: message.RoleAssistant, Content: "a1"},
		{Role: message.RoleUser, Content: "u1"},
		{Role: message.RoleAssistant, Content: "a2"},
		{Role: message.RoleUser, Content: "latest"},
	}
	out, _ := ctxasm.CompactMessages(msgs, ctxasm.Config{MaxContextTokens: 100, ReserveOutputTokens: 0})

	var contents []string
	for _, m := range out {
		contents = append(contents, m.Content)
	}
	// admitted messages must stay in their original relative order
	idx := func(s string) int {
		for i, c := range contents {
			if c == s {
				return i
			}
		}
		return -1
	}
	if idx("a1") >= 0 && idx("u1") >= 0 {
		assert.Less(t, idx("a1"), idx("u1"))
	}
}
