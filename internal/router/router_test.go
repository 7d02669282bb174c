package router

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/restaurantqr/internal/domain"
)

type fakeScreen struct {
	view   domain.View
	ctx    context.Context
	closed int
}

func (s *fakeScreen) Close() { s.closed++ }

// recorder builds fakeScreens and remembers every one it built.
type recorder struct {
	built []*fakeScreen
}

func (rec *recorder) activator(v domain.View) Activator {
	return func(ctx context.Context) Screen {
		s := &fakeScreen{view: v, ctx: ctx}
		rec.built = append(rec.built, s)
		return s
	}
}

func newRouter(rec *recorder) *Router {
	return New(slog.Default(), map[domain.View]Activator{
		domain.ViewScan: rec.activator(domain.ViewScan),
		domain.ViewChat: rec.activator(domain.ViewChat),
	})
}

func TestNewStartsOnDashboard(t *testing.T) {
	r := newRouter(&recorder{})
	assert.Equal(t, domain.ViewDashboard, r.Current())
	assert.Nil(t, r.Screen())
}

func TestNavigate(t *testing.T) {
	rec := &recorder{}
	r := newRouter(rec)

	r.Navigate(domain.ViewChat)
	assert.Equal(t, domain.ViewChat, r.Current())
	require.Len(t, rec.built, 1)
	chat := rec.built[0]
	assert.Same(t, chat, r.Screen())

	// Same view keeps the screen alive.
	r.Navigate(domain.ViewChat)
	assert.Len(t, rec.built, 1)
	assert.Zero(t, chat.closed)

	r.Navigate(domain.ViewScan)
	assert.Equal(t, 1, chat.closed)
	assert.Error(t, chat.ctx.Err(), "leaving a screen cancels its context")
	require.Len(t, rec.built, 2)
	assert.Equal(t, domain.ViewScan, rec.built[1].view)

	r.Navigate(domain.ViewQR)
	assert.Equal(t, 1, rec.built[1].closed)
	assert.Nil(t, r.Screen())

	// Coming back builds a fresh screen.
	r.Navigate(domain.ViewChat)
	require.Len(t, rec.built, 3)
	assert.NotSame(t, chat, rec.built[2])
	assert.NoError(t, rec.built[2].ctx.Err())
}

func TestNavigateUnknownView(t *testing.T) {
	rec := &recorder{}
	r := newRouter(rec)
	r.Navigate(domain.ViewScan)

	r.Navigate("nepoznato")
	assert.Equal(t, domain.View("nepoznato"), r.Current())
	assert.Equal(t, 1, rec.built[0].closed)
	assert.Equal(t, domain.ViewDashboard, Resolve(r.Current()))
}

func TestClose(t *testing.T) {
	rec := &recorder{}
	r := newRouter(rec)
	r.Navigate(domain.ViewScan)

	r.Close()
	assert.Equal(t, 1, rec.built[0].closed)
	assert.Nil(t, r.Screen())
}

func TestResolve(t *testing.T) {
	for _, v := range domain.Views {
		assert.Equal(t, v, Resolve(v))
	}
	assert.Equal(t, domain.ViewDashboard, Resolve(""))
}

func TestTitle(t *testing.T) {
	tests := []struct {
		view domain.View
		want string
	}{
		{domain.ViewScan, "Skeniraj Meni"},
		{domain.ViewQR, "Kreiraj QR Kod"},
		{domain.ViewChat, "AI Savjetnik"},
		{domain.ViewAnalytics, "Analitika"},
		{domain.ViewSettings, "Postavke"},
		{domain.ViewDashboard, "RestaurantQR Pro"},
		{"nepoznato", "RestaurantQR Pro"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.view), "view %q", tt.view)
	}
	assert.Equal(t, domain.ViewDashboard, BackTarget())
}
