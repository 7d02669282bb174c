package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/qr"
)

var knownKinds = map[domain.QRKind]bool{
	domain.QRMenu:        true,
	domain.QRWiFi:        true,
	domain.QRContact:     true,
	domain.QRSocial:      true,
	domain.QRReview:      true,
	domain.QRPayment:     true,
	domain.QRReservation: true,
}

type qrData struct {
	Kind    domain.QRKind
	Kinds   []qr.Kind
	Fields  domain.QRFields
	Style   domain.QRStyle
	Payload string
	// Query reproduces the form for the image and download links.
	Query template.URL
}

func (s *Server) qrData(kind domain.QRKind, fields domain.QRFields, style domain.QRStyle) qrData {
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("text", fields.Text)
	q.Set("ssid", fields.SSID)
	q.Set("password", fields.Password)
	q.Set("fg", style.Foreground)
	q.Set("bg", style.Background)
	return qrData{
		Kind:    kind,
		Kinds:   qr.Kinds(),
		Fields:  fields,
		Style:   style,
		Payload: qr.Encode(kind, fields),
		Query:   template.URL(q.Encode()),
	}
}

// parseQRQuery reads the generator form from the query string. Missing
// parameters fall back to the generator's defaults.
func parseQRQuery(r *http.Request) (domain.QRKind, domain.QRFields, domain.QRStyle, error) {
	q := r.URL.Query()

	kind := qr.DefaultKind
	if k := q.Get("kind"); k != "" {
		kind = domain.QRKind(k)
	}
	if !knownKinds[kind] {
		return "", domain.QRFields{}, domain.QRStyle{}, fmt.Errorf("unknown qr kind %q", kind)
	}

	fields := qr.DefaultFields()
	if q.Has("text") {
		fields.Text = q.Get("text")
	}
	fields.SSID = q.Get("ssid")
	fields.Password = q.Get("password")

	style := qr.DefaultStyle()
	if fg := q.Get("fg"); fg != "" {
		style.Foreground = fg
	}
	if bg := q.Get("bg"); bg != "" {
		style.Background = bg
	}
	return kind, fields, style, nil
}

// handleQRPreview re-renders the preview panel for the current form values.
func (s *Server) handleQRPreview(w http.ResponseWriter, r *http.Request) {
	kind, fields, style, err := parseQRQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.renderPartial(w, "partials/qr_preview.html", s.qrData(kind, fields, style)); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleQRImage(w http.ResponseWriter, r *http.Request) {
	s.writeQR(w, r, false)
}

func (s *Server) handleQRDownload(w http.ResponseWriter, r *http.Request) {
	s.writeQR(w, r, true)
}

func (s *Server) writeQR(w http.ResponseWriter, r *http.Request, attachment bool) {
	kind, fields, style, err := parseQRQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	png, err := qr.Render(qr.Encode(kind, fields), qr.Options{Size: s.qrSize, Style: style})
	switch {
	case errors.Is(err, qr.ErrEmptyPayload), errors.Is(err, qr.ErrInvalidColor):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "failed to render qr code", http.StatusInternalServerError)
		s.logger.Error("render qr failed", "kind", kind, "error", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", qr.Filename(kind)))
	}
	if _, err := w.Write(png); err != nil {
		s.logger.Error("write qr failed", "kind", kind, "error", err)
	}
}
