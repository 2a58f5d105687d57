package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trailstop/internal/cli"
	"trailstop/internal/config"
	"trailstop/internal/svc"
	"trailstop/pkg/engine"
)

const (
	executeTimeout  = 5 * time.Second  // Timeout for a single order settlement
	shutdownTimeout = 10 * time.Second // Grace period for shutdown
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting trailing-stop keeper...")

	configPath := "etc/trailstop.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	appCfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", configPath, err)
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	ctx, err := svc.NewServiceContext(appCfg)
	if err != nil {
		log.Fatalf("[main] Failed to build service context: %v", err)
	}

	feeRecipient := ctx.Config.Engine.Value.ExecutorAddress()
	if raw := appCfg.Keeper.FeeRecipient; raw != "" {
		if !common.IsHexAddress(raw) {
			log.Fatalf("[main] Keeper fee recipient %q is not a hex address", raw)
		}
		feeRecipient = common.HexToAddress(raw)
	}
	log.Printf("  - Fee Recipient: %s", feeRecipient.Hex())
	log.Printf("  - Scan Interval: %s", appCfg.Keeper.ScanInterval())

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	var metricsSrv *http.Server
	if listenOn := appCfg.Keeper.MetricsListenOn; listenOn != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(ctx.Registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: listenOn, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("[metrics] Serving prometheus metrics on %s", listenOn)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[metrics] [ERROR] %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runOrderScanner(runCtx, ctx.Engine, feeRecipient, appCfg.Keeper.ScanInterval())
	}()

	log.Println("[main] Keeper started. Press Ctrl+C to stop.")
	<-runCtx.Done()
	log.Println("[main] Shutdown signal received, stopping tasks...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] All tasks stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}

	log.Println("[main] Keeper stopped")
}

// runOrderScanner sweeps live orders on a schedule and settles every order
// whose trigger currently holds.
func runOrderScanner(ctx context.Context, eng *engine.Engine, feeRecipient common.Address, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once immediately on startup
	scanOrders(ctx, eng, feeRecipient)

	for {
		select {
		case <-ctx.Done():
			log.Println("[scanner] Stopping order scanner")
			return
		case <-ticker.C:
			scanOrders(ctx, eng, feeRecipient)
		}
	}
}

// scanOrders checks each live order against the oracle and executes the ones
// whose trigger is satisfied.
func scanOrders(parentCtx context.Context, eng *engine.Engine, feeRecipient common.Address) {
	if parentCtx.Err() != nil {
		return
	}

	snapshot := eng.Store().Snapshot()
	start := time.Now()
	executed := 0

	for slot := range snapshot {
		if parentCtx.Err() != nil {
			return
		}
		func() {
			ctx, cancel := context.WithTimeout(parentCtx, executeTimeout)
			defer cancel()

			price, ok, err := eng.ShouldExecute(ctx, slot.Account, slot.Index)
			if err != nil {
				// The order may have been cancelled between snapshot and check.
				if errors.Is(err, engine.ErrNonExistentOrder) {
					return
				}
				log.Printf("[scanner.check] [ERROR] %s/%d: %v", slot.Account.Hex(), slot.Index, err)
				return
			}
			if !ok {
				return
			}

			if err := eng.ExecuteOrder(ctx, eng.Executor(), slot.Account, slot.Index, feeRecipient); err != nil {
				log.Printf("[scanner.execute] [ERROR] %s/%d: %v", slot.Account.Hex(), slot.Index, err)
				return
			}
			executed++
			log.Printf("[scanner.execute] [OK] %s/%d at price %s", slot.Account.Hex(), slot.Index, price)
		}()
	}

	log.Printf("[scanner] [OK] scanned %d orders, executed %d, took %dms",
		len(snapshot), executed, time.Since(start).Milliseconds())
}
