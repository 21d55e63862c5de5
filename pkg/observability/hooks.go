// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers can register
// hooks at startup to receive events about model mutations, detection
// passes, and resolution actions.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach avoids import cycles (hooks are registered by main, not by
// libraries) and keeps the core free of observability frameworks.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetDetectionHooks(&myDetectionHooks{})
//	    // ... run application
//	}
//
// The pipeline calls hooks to emit events:
//
//	observability.Detection().OnDetectStart(ctx, processCount)
//	// ... run detection ...
//	observability.Detection().OnDetectComplete(ctx, deadlocked, safe, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Model Hooks
// =============================================================================

// ModelHooks receives events from allocation-model mutations.
type ModelHooks interface {
	// OnRequest records a request and whether it was granted immediately.
	OnRequest(ctx context.Context, process, resource string, count int, granted bool)

	// OnRelease records a release and how many waiters it woke.
	OnRelease(ctx context.Context, process, resource string, count, woken int)
}

// =============================================================================
// Detection Hooks
// =============================================================================

// DetectionHooks receives events from detection passes.
type DetectionHooks interface {
	OnDetectStart(ctx context.Context, processCount int)
	OnDetectComplete(ctx context.Context, deadlocked int, safe bool, duration time.Duration)
}

// =============================================================================
// Resolution Hooks
// =============================================================================

// ResolutionHooks receives events from resolution runs.
type ResolutionHooks interface {
	OnResolveStart(ctx context.Context, deadlocked int, strategy string)
	OnActionApplied(ctx context.Context, kind, victim string)
	OnResolveComplete(ctx context.Context, actions int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopModelHooks is a no-op implementation of ModelHooks.
type NoopModelHooks struct{}

func (NoopModelHooks) OnRequest(context.Context, string, string, int, bool) {}
func (NoopModelHooks) OnRelease(context.Context, string, string, int, int)  {}

// NoopDetectionHooks is a no-op implementation of DetectionHooks.
type NoopDetectionHooks struct{}

func (NoopDetectionHooks) OnDetectStart(context.Context, int)                         {}
func (NoopDetectionHooks) OnDetectComplete(context.Context, int, bool, time.Duration) {}

// NoopResolutionHooks is a no-op implementation of ResolutionHooks.
type NoopResolutionHooks struct{}

func (NoopResolutionHooks) OnResolveStart(context.Context, int, string)                  {}
func (NoopResolutionHooks) OnActionApplied(context.Context, string, string)              {}
func (NoopResolutionHooks) OnResolveComplete(context.Context, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	modelHooks      ModelHooks      = NoopModelHooks{}
	detectionHooks  DetectionHooks  = NoopDetectionHooks{}
	resolutionHooks ResolutionHooks = NoopResolutionHooks{}
	hooksMu         sync.RWMutex
)

// SetModelHooks registers custom model hooks.
// This should be called once at application startup.
func SetModelHooks(h ModelHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		modelHooks = h
	}
}

// SetDetectionHooks registers custom detection hooks.
// This should be called once at application startup.
func SetDetectionHooks(h DetectionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		detectionHooks = h
	}
}

// SetResolutionHooks registers custom resolution hooks.
// This should be called once at application startup.
func SetResolutionHooks(h ResolutionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolutionHooks = h
	}
}

// Model returns the registered model hooks.
func Model() ModelHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return modelHooks
}

// Detection returns the registered detection hooks.
func Detection() DetectionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return detectionHooks
}

// Resolution returns the registered resolution hooks.
func Resolution() ResolutionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolutionHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	modelHooks = NoopModelHooks{}
	detectionHooks = NoopDetectionHooks{}
	resolutionHooks = NoopResolutionHooks{}
}
