package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onWalletCreated      []OnWalletCreated
	onWalletCredited     []OnWalletCredited
	onWalletDebited      []OnWalletDebited
	onWalletFrozen       []OnWalletFrozen
	onMemberJoined       []OnMemberJoined
	onMemberLeft         []OnMemberLeft
	onCreditAllocated    []OnCreditAllocated
	onCreditReleased     []OnCreditReleased
	onRechargeCreated    []OnRechargeCreated
	onRechargeSettled    []OnRechargeSettled
	onRechargeFailed     []OnRechargeFailed
	onSettlementReplayed []OnSettlementReplayed
	onSignatureRejected  []OnSignatureRejected
	onContention         []OnContention
	onUsageFlushed       []OnUsageFlushed
	rateProviders        map[string]RateProvider
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:        slog.Default(),
		rateProviders: make(map[string]RateProvider),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnWalletCreated); ok {
		r.onWalletCreated = append(r.onWalletCreated, v)
	}
	if v, ok := p.(OnWalletCredited); ok {
		r.onWalletCredited = append(r.onWalletCredited, v)
	}
	if v, ok := p.(OnWalletDebited); ok {
		r.onWalletDebited = append(r.onWalletDebited, v)
	}
	if v, ok := p.(OnWalletFrozen); ok {
		r.onWalletFrozen = append(r.onWalletFrozen, v)
	}
	if v, ok := p.(OnMemberJoined); ok {
		r.onMemberJoined = append(r.onMemberJoined, v)
	}
	if v, ok := p.(OnMemberLeft); ok {
		r.onMemberLeft = append(r.onMemberLeft, v)
	}
	if v, ok := p.(OnCreditAllocated); ok {
		r.onCreditAllocated = append(r.onCreditAllocated, v)
	}
	if v, ok := p.(OnCreditReleased); ok {
		r.onCreditReleased = append(r.onCreditReleased, v)
	}
	if v, ok := p.(OnRechargeCreated); ok {
		r.onRechargeCreated = append(r.onRechargeCreated, v)
	}
	if v, ok := p.(OnRechargeSettled); ok {
		r.onRechargeSettled = append(r.onRechargeSettled, v)
	}
	if v, ok := p.(OnRechargeFailed); ok {
		r.onRechargeFailed = append(r.onRechargeFailed, v)
	}
	if v, ok := p.(OnSettlementReplayed); ok {
		r.onSettlementReplayed = append(r.onSettlementReplayed, v)
	}
	if v, ok := p.(OnSignatureRejected); ok {
		r.onSignatureRejected = append(r.onSignatureRejected, v)
	}
	if v, ok := p.(OnContention); ok {
		r.onContention = append(r.onContention, v)
	}
	if v, ok := p.(OnUsageFlushed); ok {
		r.onUsageFlushed = append(r.onUsageFlushed, v)
	}
	if v, ok := p.(RateProvider); ok {
		r.rateProviders[v.StrategyName()] = v
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnWalletCreated)(nil)).Elem(), "OnWalletCreated")
	checkInterface(reflect.TypeOf((*OnWalletCredited)(nil)).Elem(), "OnWalletCredited")
	checkInterface(reflect.TypeOf((*OnWalletDebited)(nil)).Elem(), "OnWalletDebited")
	checkInterface(reflect.TypeOf((*OnMemberJoined)(nil)).Elem(), "OnMemberJoined")
	checkInterface(reflect.TypeOf((*OnRechargeSettled)(nil)).Elem(), "OnRechargeSettled")
	checkInterface(reflect.TypeOf((*OnSignatureRejected)(nil)).Elem(), "OnSignatureRejected")
	checkInterface(reflect.TypeOf((*OnContention)(nil)).Elem(), "OnContention")
	checkInterface(reflect.TypeOf((*RateProvider)(nil)).Elem(), "RateProvider")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitWalletCreated emits a wallet created event.
func (r *Registry) EmitWalletCreated(ctx context.Context, wallet interface{}) {
	r.mu.RLock()
	plugins := r.onWalletCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWalletCreated(ctx, wallet)
		}); err != nil {
			r.logger.Warn("plugin OnWalletCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitWalletCredited emits a balance credited event.
func (r *Registry) EmitWalletCredited(ctx context.Context, wallet interface{}, amount string) {
	r.mu.RLock()
	plugins := r.onWalletCredited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWalletCredited(ctx, wallet, amount)
		}); err != nil {
			r.logger.Warn("plugin OnWalletCredited failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitWalletDebited emits a balance debited event.
func (r *Registry) EmitWalletDebited(ctx context.Context, wallet interface{}, amount string) {
	r.mu.RLock()
	plugins := r.onWalletDebited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWalletDebited(ctx, wallet, amount)
		}); err != nil {
			r.logger.Warn("plugin OnWalletDebited failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitWalletFrozen emits a freeze state change event.
func (r *Registry) EmitWalletFrozen(ctx context.Context, walletID string, frozen bool) {
	r.mu.RLock()
	plugins := r.onWalletFrozen
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWalletFrozen(ctx, walletID, frozen)
		}); err != nil {
			r.logger.Warn("plugin OnWalletFrozen failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitMemberJoined emits a member joined event.
func (r *Registry) EmitMemberJoined(ctx context.Context, member interface{}) {
	r.mu.RLock()
	plugins := r.onMemberJoined
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMemberJoined(ctx, member)
		}); err != nil {
			r.logger.Warn("plugin OnMemberJoined failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitMemberLeft emits a member left event.
func (r *Registry) EmitMemberLeft(ctx context.Context, member interface{}) {
	r.mu.RLock()
	plugins := r.onMemberLeft
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMemberLeft(ctx, member)
		}); err != nil {
			r.logger.Warn("plugin OnMemberLeft failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCreditAllocated emits a member credit allocation event.
func (r *Registry) EmitCreditAllocated(ctx context.Context, member interface{}, amount string) {
	r.mu.RLock()
	plugins := r.onCreditAllocated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCreditAllocated(ctx, member, amount)
		}); err != nil {
			r.logger.Warn("plugin OnCreditAllocated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCreditReleased emits a member credit release event.
func (r *Registry) EmitCreditReleased(ctx context.Context, member interface{}, amount string) {
	r.mu.RLock()
	plugins := r.onCreditReleased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCreditReleased(ctx, member, amount)
		}); err != nil {
			r.logger.Warn("plugin OnCreditReleased failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRechargeCreated emits a recharge created event.
func (r *Registry) EmitRechargeCreated(ctx context.Context, txn interface{}) {
	r.mu.RLock()
	plugins := r.onRechargeCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRechargeCreated(ctx, txn)
		}); err != nil {
			r.logger.Warn("plugin OnRechargeCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRechargeSettled emits a recharge settled event.
func (r *Registry) EmitRechargeSettled(ctx context.Context, txn interface{}) {
	r.mu.RLock()
	plugins := r.onRechargeSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRechargeSettled(ctx, txn)
		}); err != nil {
			r.logger.Warn("plugin OnRechargeSettled failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRechargeFailed emits a recharge failed event.
func (r *Registry) EmitRechargeFailed(ctx context.Context, txn interface{}, reason string) {
	r.mu.RLock()
	plugins := r.onRechargeFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRechargeFailed(ctx, txn, reason)
		}); err != nil {
			r.logger.Warn("plugin OnRechargeFailed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitSettlementReplayed emits a duplicate settlement delivery event.
func (r *Registry) EmitSettlementReplayed(ctx context.Context, businessID string) {
	r.mu.RLock()
	plugins := r.onSettlementReplayed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementReplayed(ctx, businessID)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementReplayed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitSignatureRejected emits a callback signature rejection event.
func (r *Registry) EmitSignatureRejected(ctx context.Context, businessID, signType string) {
	r.mu.RLock()
	plugins := r.onSignatureRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSignatureRejected(ctx, businessID, signType)
		}); err != nil {
			r.logger.Warn("plugin OnSignatureRejected failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitContention emits a retries-exhausted event.
func (r *Registry) EmitContention(ctx context.Context, entityID string, attempts int) {
	r.mu.RLock()
	plugins := r.onContention
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContention(ctx, entityID, attempts)
		}); err != nil {
			r.logger.Warn("plugin OnContention failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitUsageFlushed emits a usage flushed event.
func (r *Registry) EmitUsageFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onUsageFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUsageFlushed(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnUsageFlushed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// GetRateProvider returns a rate provider by strategy name.
func (r *Registry) GetRateProvider(name string) RateProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rateProviders[name]
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
