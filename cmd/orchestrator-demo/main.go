// Command orchestrator-demo wires every component package together and
// drives a couple of sample turns end to end, the way
// gomind/core/cmd/example demonstrates a bare BaseAgent.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/shopaway/orchestrator/internal/consent"
	"github.com/shopaway/orchestrator/internal/corelog"
	"github.com/shopaway/orchestrator/internal/fetcher"
	"github.com/shopaway/orchestrator/internal/orchestrator"
	"github.com/shopaway/orchestrator/internal/providers"
	"github.com/shopaway/orchestrator/internal/registry"
	"github.com/shopaway/orchestrator/internal/resilience"
	"github.com/shopaway/orchestrator/internal/routing"
	"github.com/shopaway/orchestrator/internal/telemetry"
	"github.com/shopaway/orchestrator/internal/usagelog"
)

// circuitMetrics adapts telemetry.Provider's single trip counter to
// resilience.MetricsCollector's trip/reset pair; reset transitions aren't
// a metric this demo's telemetry surface tracks.
type circuitMetrics struct{ provider telemetry.Provider }

func (c circuitMetrics) RecordTrip(apiName string) { c.provider.RecordCircuitTrip(apiName) }
func (c circuitMetrics) RecordReset(string)        {}

// tracerAdapter re-exposes telemetry.Provider as orchestrator.Tracer: both
// declare StartSpan, but its return types (telemetry.Span vs
// orchestrator.Span) are named types in different packages, so Go needs an
// explicit adapter. The fetcher takes the provider directly, since
// RecordTierCall's signature has no such package-named types.
type tracerAdapter struct{ provider telemetry.Provider }

func (t tracerAdapter) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, orchestrator.Span) {
	return t.provider.StartSpan(ctx, name, attrs)
}

func main() {
	logger := corelog.NewProductionLogger("text", "info")

	reg, warnings := registry.DefaultRegistry()
	for _, w := range warnings {
		logger.Warn("registry warning", map[string]interface{}{"detail": w})
	}

	table := routing.DefaultTable()
	if err := table.Validate(reg.Exists); err != nil {
		log.Fatalf("routing table does not match registry: %v", err)
	}

	tp, err := telemetry.NewDevTracerProvider("orchestrator-demo")
	if err != nil {
		log.Fatalf("building tracer provider: %v", err)
	}
	otelProvider, err := telemetry.NewOTelProvider("orchestrator-demo", tp)
	if err != nil {
		log.Fatalf("building telemetry provider: %v", err)
	}
	defer otelProvider.Shutdown(context.Background())

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	breakerCfg.Metrics = circuitMetrics{provider: otelProvider}
	breaker := resilience.NewManager(breakerCfg)
	breaker.SetLogger(logger.WithComponent("resilience"))

	adapters := providers.NewDefaultRegistry()
	usage := usagelog.New(usagelog.NewStdoutSink(os.Stdout), logger, corelog.SystemClock{})
	fetch := fetcher.New(reg, adapters, breaker, usage, logger, corelog.SystemClock{})
	fetch.SetTelemetry(otelProvider)

	halts := consent.NewInMemoryHaltStore(corelog.SystemClock{})

	orch := orchestrator.New(table, fetch, reg, breaker, halts, usage, logger, corelog.SystemClock{}, orchestrator.DefaultConfig())
	orch.SetTracer(tracerAdapter{provider: otelProvider})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := orch.HandleTurn(ctx, orchestrator.TurnRequest{
		Intent:    "product",
		Query:     "best noise cancelling headphones under $300",
		UserID:    "demo-user",
		SessionID: "demo-session-1",
	})
	if err != nil {
		log.Fatalf("turn 1 failed: %v", err)
	}
	log.Printf("turn 1: status=%s tier=%d items=%d sources=%v", result.Status, result.TierReached, len(result.Items), result.SourcesUsed)

	if result.Status == orchestrator.StatusConsentRequired {
		log.Printf("turn 1 halted on consent: %s", result.ConsentPrompt.Message)

		resumed, err := orch.HandleTurn(ctx, orchestrator.TurnRequest{
			Intent:          "product",
			Query:           "best noise cancelling headphones under $300",
			UserID:          "demo-user",
			SessionID:       "demo-session-1",
			AccountToggleOn: true,
			InboundMessage:  "yes",
		})
		if err != nil {
			log.Fatalf("resumed turn failed: %v", err)
		}
		log.Printf("resumed: status=%s tier=%d items=%d", resumed.Status, resumed.TierReached, len(resumed.Items))
	}

	compare, err := orch.HandleTurn(ctx, orchestrator.TurnRequest{
		Intent:                "comparison",
		Query:                 "compare iPhone 15 vs Galaxy S24",
		UserID:                "demo-user",
		SessionID:             "demo-session-2",
		RequestedProductNames: []string{"iPhone 15", "Galaxy S24"},
	})
	if err != nil {
		log.Fatalf("comparison turn failed: %v", err)
	}
	log.Printf("comparison: status=%s tier=%d items=%d", compare.Status, compare.TierReached, len(compare.Items))
}
