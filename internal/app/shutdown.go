package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the engine. The engine loop finishes its
// current cycle, including any in-flight trade, before components close.
func (a *App) Shutdown() error {
	a.logger.Info("engine-shutting-down")

	a.healthChecker.SetReady(false)
	a.running.Store(false)
	a.notifyStatusChange("stopping")

	// Signal the engine loop and the feed, then wait for them.
	a.cancel()

	if a.stream != nil {
		a.stream.Stop()
	}
	a.feedManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Wait for the engine loop before closing what it uses.
	a.wg.Wait()

	err = a.backend.Close()
	if err != nil {
		a.logger.Error("backend-close-error", zap.Error(err))
	}

	err = a.storage.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.logger.Info("engine-shutdown-complete")

	return nil
}
