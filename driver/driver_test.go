package driver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/driver"
	"github.com/arcanrun/arcane/journal/inmem"
	"github.com/arcanrun/arcane/orchestrator"
	"github.com/arcanrun/arcane/provider"
	"github.com/arcanrun/arcane/session"
	"github.com/arcanrun/arcane/tools"
)

type scriptedProvider struct {
	turns []provider.ModelTurn
	next  int
}

func (p *scriptedProvider) Name() string { return "scripted" }
func (p *scriptedProvider) Complete(context.Context, provider.Request) (provider.ModelTurn, error) {
	if p.next >= len(p.turns) {
		return provider.ModelTurn{StopReason: provider.StopEndTurn}, nil
	}
	turn := p.turns[p.next]
	p.next++
	return turn, nil
}

func drain(t *testing.T, turn *driver.Turn) orchestrator.RunOutput {
	t.Helper()
	for range turn.Events {
		// drain to completion
	}
	select {
	case out := <-turn.Done:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not complete in time")
		return orchestrator.RunOutput{}
	}
}

func TestSubmitRunsOrchestratorAndPersistsEvents(t *testing.T) {
	p := &scriptedProvider{turns: []provider.ModelTurn{
		{Directives: []provider.Directive{{Kind: provider.DirectiveText, TextDelta: "hello"}}, StopReason: provider.StopEndTurn},
	}}
	repo := session.NewRepository(inmem.New())
	d := driver.New(repo, orchestrator.New(p, tools.NewRegistry(), nil))

	turn, err := d.Submit(context.Background(), "s1", "hi")
	require.NoError(t, err)
	out := drain(t, turn)

	assert.Equal(t, orchestrator.ReasonCompleted, out.Reason)

	records, err := repo.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, records)
}

func TestSubmitRebuildsHistoryFromPriorTurn(t *testing.T) {
	p := &scriptedProvider{turns: []provider.ModelTurn{
		{Directives: []provider.Directive{{Kind: provider.DirectiveText, TextDelta: "first"}}, StopReason: provider.StopEndTurn},
		{Directives: []provider.Directive{{Kind: provider.DirectiveText, TextDelta: "second"}}, StopReason: provider.StopEndTurn},
	}}
	repo := session.NewRepository(inmem.New())
	d := driver.New(repo, orchestrator.New(p, tools.NewRegistry(), nil))

	turn1, err := d.Submit(context.Background(), "s1", "hi")
	require.NoError(t, err)
	drain(t, turn1)

	turn2, err := d.Submit(context.Background(), "s1", "again")
	require.NoError(t, err)
	out2 := drain(t, turn2)

	require.GreaterOrEqual(t, len(out2.Messages), 3)
}
