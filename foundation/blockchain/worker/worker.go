// Package worker seals empty blocks on an interval for the blockchain, so
// transactions waiting on confirmations see the chain move forward.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/fundme/foundation/blockchain/state"
)

// sealTimeout bounds how long a single seal operation can take.
const sealTimeout = 5 * time.Second

// =============================================================================

// Worker manages the block sealing workflow for the blockchain.
type Worker struct {
	state     *state.State
	wg        sync.WaitGroup
	ticker    *time.Ticker
	shut      chan struct{}
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes. A zero interval registers the
// worker without sealing anything, which is how the automine networks run.
func Run(st *state.State, interval time.Duration, evHandler state.EventHandler) {
	w := Worker{
		state:     st,
		shut:      make(chan struct{}),
		evHandler: evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	if interval <= 0 {
		w.evHandler("worker: Run: interval sealing disabled")
		return
	}

	w.ticker = time.NewTicker(interval)

	// Load the set of operations we need to run.
	operations := []func(){
		w.sealOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	if w.ticker != nil {
		w.evHandler("worker: shutdown: stop ticker")
		w.ticker.Stop()
	}

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// =============================================================================

// sealOperations seals an empty block every tick of the ticker.
func (w *Worker) sealOperations() {
	w.evHandler("worker: sealOperations: G started")
	defer w.evHandler("worker: sealOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runSealOperation()
			}
		case <-w.shut:
			w.evHandler("worker: sealOperations: received shut signal")
			return
		}
	}
}

// runSealOperation seals the next block.
func (w *Worker) runSealOperation() {
	ctx, cancel := context.WithTimeout(context.Background(), sealTimeout)
	defer cancel()

	block, err := w.state.SealBlock(ctx)
	if err != nil {
		w.evHandler("worker: runSealOperation: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runSealOperation: sealed: blk[%d]", block.Header.Number)
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
