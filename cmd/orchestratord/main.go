// Command orchestratord wires an in-memory provider/tool fixture to the
// §6.3 HTTP surface for manual exercise, analogous to the teacher's
// cmd/demo.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arcanrun/arcane/approval"
	"github.com/arcanrun/arcane/ctxasm"
	"github.com/arcanrun/arcane/driver"
	"github.com/arcanrun/arcane/httpapi"
	"github.com/arcanrun/arcane/journal/inmem"
	"github.com/arcanrun/arcane/middleware"
	"github.com/arcanrun/arcane/orchestrator"
	"github.com/arcanrun/arcane/policy"
	"github.com/arcanrun/arcane/provider"
	"github.com/arcanrun/arcane/session"
	"github.com/arcanrun/arcane/telemetry"
	"github.com/arcanrun/arcane/tools"
)

// echoProvider is a stub Provider that answers with a final message greeting
// the last user turn. It never calls tools, so the demo is useful for
// exercising the HTTP surface and streaming bridge without network access.
type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Complete(_ context.Context, req provider.Request) (provider.ModelTurn, error) {
	last := "hello"
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	return provider.ModelTurn{
		StopReason: provider.StopEndTurn,
		Directives: []provider.Directive{
			{Kind: provider.DirectiveText, TextDelta: fmt.Sprintf("You said: %s", last)},
			{Kind: provider.DirectiveFinalAnswer, FinalAnswerText: fmt.Sprintf("You said: %s", last)},
		},
	}, nil
}

// echoTool is a trivial read-only tool that echoes its input back as output.
type echoTool struct{}

func (echoTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        "demo.echo",
		Description: "Echoes the input JSON back as output.",
		Annotations: []tools.Annotation{tools.AnnotationReadOnly},
	}
}

func (echoTool) Execute(_ context.Context, call tools.Call, _ tools.Context) (tools.Result, error) {
	return tools.Result{CallID: call.CallID, ToolName: call.ToolName, Output: call.Input}, nil
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	registry := tools.NewRegistry()
	registry.Register(echoTool{})

	logger := telemetry.NewClueLogger()

	gate := approval.NewGate(0)
	chain := middleware.NewChain(middleware.NewPolicyMiddleware(policy.RuleSet{}, gate, nil))
	orch := orchestrator.New(echoProvider{}, registry, chain)
	orch.Logger = logger
	orch.Tracer = telemetry.NewClueTracer("arcane/orchestrator")
	orch.Metrics = telemetry.NewPromMetrics(prometheus.DefaultRegisterer)
	orch.ContextSource = ctxasm.NewStaticSource(ctxasm.ContextBlock{
		Kind:     ctxasm.KindPersona,
		Content:  "You are the arcane demo agent: echo the user's message back, clearly labeled.",
		Priority: ctxasm.PersonaPriority,
	})

	repo := session.NewRepository(inmem.New())
	repo.Logger = logger
	d := driver.New(repo, orch)

	srv := httpapi.New(d, gate, logger)

	log.Printf("orchestratord listening on %s", *addr)
	if err := http.ListenAndServe(*addr, srv.Mux()); err != nil {
		log.Fatal(err)
	}
}
