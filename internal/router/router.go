// Package router tracks which screen of the app is shown and owns the
// lifetime of that screen's state.
package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vbonduro/restaurantqr/internal/domain"
)

const DefaultTitle = "RestaurantQR Pro"

var titles = map[domain.View]string{
	domain.ViewScan:      "Skeniraj Meni",
	domain.ViewQR:        "Kreiraj QR Kod",
	domain.ViewChat:      "AI Savjetnik",
	domain.ViewAnalytics: "Analitika",
	domain.ViewSettings:  "Postavke",
}

// Screen is the state behind one visible view. Close releases it and cancels
// any work it still has in flight.
type Screen interface {
	Close()
}

// Activator builds the screen for a view when it becomes current. ctx lives
// until the screen is closed.
type Activator func(ctx context.Context) Screen

type Router struct {
	logger     *slog.Logger
	activators map[domain.View]Activator

	mu      sync.Mutex
	current domain.View
	screen  Screen
	cancel  context.CancelFunc
}

// New returns a router showing the dashboard. Views without an activator have
// no screen state.
func New(logger *slog.Logger, activators map[domain.View]Activator) *Router {
	r := &Router{
		logger:     logger,
		activators: activators,
		current:    domain.ViewDashboard,
	}
	r.activate(domain.ViewDashboard)
	return r
}

// Navigate makes v the current view. The value is not validated; unknown
// views are rendered as the dashboard. Moving to a different view closes the
// previous screen, while navigating to the current view keeps it.
func (r *Router) Navigate(v domain.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v == r.current {
		return
	}
	r.logger.Info("navigate", "from", r.current, "to", v)
	r.closeLocked()
	r.current = v
	r.activate(v)
}

func (r *Router) activate(v domain.View) {
	activate, ok := r.activators[v]
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.screen = activate(ctx)
	r.cancel = cancel
}

func (r *Router) closeLocked() {
	if r.screen != nil {
		r.screen.Close()
		r.screen = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Router) Current() domain.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Screen returns the current view's screen, or nil when the view has none.
func (r *Router) Screen() Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screen
}

// Close tears down the active screen.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

// Resolve maps v to the view that is actually rendered for it.
func Resolve(v domain.View) domain.View {
	for _, known := range domain.Views {
		if v == known {
			return v
		}
	}
	return domain.ViewDashboard
}

// Title is the header title shown for v.
func Title(v domain.View) string {
	if t, ok := titles[v]; ok {
		return t
	}
	return DefaultTitle
}

// BackTarget is where the header's back button leads from any screen.
func BackTarget() domain.View {
	return domain.ViewDashboard
}
