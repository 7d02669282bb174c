package web

import (
	"context"
	"net/http"

	"github.com/vbonduro/restaurantqr/internal/advisor"
	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/menureview"
	"github.com/vbonduro/restaurantqr/internal/router"
)

// scanScreen is the menu scanner. Extraction runs under ctx, so leaving the
// screen abandons it.
type scanScreen struct {
	ctx     context.Context
	machine *menureview.Machine
}

func (s *scanScreen) Close() {}

func (s *Server) activators() map[domain.View]router.Activator {
	return map[domain.View]router.Activator{
		domain.ViewScan: func(ctx context.Context) router.Screen {
			logger := s.logger.With("screen", domain.ViewScan)
			m := menureview.New(s.gateway, logger, menureview.WithObserver(func(from, to menureview.State) {
				logger.Info("menu review state changed", "from", from, "to", to)
			}))
			return &scanScreen{ctx: ctx, machine: m}
		},
		domain.ViewChat: func(ctx context.Context) router.Screen {
			c := advisor.New(s.gateway, s.logger.With("screen", domain.ViewChat))
			c.Start(ctx)
			return c
		},
	}
}

// errNotActive is written when a request targets a screen that is not shown.
const errNotActive = "screen is not active"

func (s *Server) scanScreen(w http.ResponseWriter) (*scanScreen, bool) {
	scan, ok := s.router.Screen().(*scanScreen)
	if !ok {
		http.Error(w, errNotActive, http.StatusConflict)
	}
	return scan, ok
}

func (s *Server) chatScreen(w http.ResponseWriter) (*advisor.Controller, bool) {
	c, ok := s.router.Screen().(*advisor.Controller)
	if !ok {
		http.Error(w, errNotActive, http.StatusConflict)
	}
	return c, ok
}
