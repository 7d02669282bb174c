package web

import (
	"net/http"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/qr"
	"github.com/vbonduro/restaurantqr/internal/router"
)

// tile is one dashboard shortcut.
type tile struct {
	View        domain.View
	Title       string
	Description string
}

var dashboardTiles = []tile{
	{View: domain.ViewScan, Title: "Skeniraj Meni", Description: "Fotografirajte jelovnik i pretvorite ga u digitalni."},
	{View: domain.ViewQR, Title: "Kreiraj QR Kod", Description: "QR kodovi za jelovnik, Wi-Fi, recenzije i više."},
	{View: domain.ViewChat, Title: "AI Savjetnik", Description: "Savjeti za digitalizaciju vašeg objekta."},
	{View: domain.ViewAnalytics, Title: "Analitika", Description: "Pregled skeniranja i posjeta."},
	{View: domain.ViewSettings, Title: "Postavke", Description: "Podaci o objektu i računu."},
}

type pageData struct {
	View       domain.View
	Title      string
	BackTarget domain.View
	Content    any
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := router.Resolve(s.router.Current())
	page := pageData{View: view, Title: router.Title(view), BackTarget: router.BackTarget()}

	files := []string{"base.html"}
	switch view {
	case domain.ViewScan:
		scan, ok := s.scanScreen(w)
		if !ok {
			return
		}
		page.Content = scanData{Snapshot: scan.machine.Snapshot()}
		files = append(files, "pages/scan.html", "partials/scan_panel.html")
	case domain.ViewQR:
		page.Content = s.qrData(qr.DefaultKind, qr.DefaultFields(), qr.DefaultStyle())
		files = append(files, "pages/qr.html", "partials/qr_preview.html")
	case domain.ViewChat:
		c, ok := s.chatScreen(w)
		if !ok {
			return
		}
		page.Content = chatData{Messages: c.Messages(), Busy: c.Busy()}
		files = append(files, "pages/chat.html", "partials/chat_log.html")
	case domain.ViewAnalytics, domain.ViewSettings:
		files = append(files, "pages/coming_soon.html")
	default:
		page.Content = dashboardTiles
		files = append(files, "pages/dashboard.html")
	}

	if err := s.renderPage(w, page, files...); err != nil {
		s.logger.Error("render page failed", "view", view, "error", err)
	}
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	s.router.Navigate(domain.View(r.FormValue("view")))

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
