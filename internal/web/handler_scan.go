package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/menureview"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// invalidPriceMessage is shown next to the edit form when a price does not
// parse.
const invalidPriceMessage = "Cijena mora biti broj."

// editableFields are read from the item edit form in this order.
var editableFields = []menureview.Field{
	menureview.FieldName,
	menureview.FieldDescription,
	menureview.FieldPrice,
	menureview.FieldCurrency,
	menureview.FieldCategory,
	menureview.FieldVegetarian,
	menureview.FieldAllergens,
}

type scanData struct {
	Snapshot  menureview.Snapshot
	FormError string
}

func (scanData) Categories() []domain.Category { return domain.Categories }
func (scanData) Currencies() []domain.Currency { return domain.Currencies }

// formFile adapts an uploaded multipart file to menureview.File.
type formFile struct {
	header *multipart.FileHeader
}

func (f formFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

func (s *Server) renderScanPanel(w http.ResponseWriter, scan *scanScreen, formError string) {
	data := scanData{Snapshot: scan.machine.Snapshot(), FormError: formError}
	if err := s.renderPartial(w, "partials/scan_panel.html", data); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// writeScanError maps menureview errors to a status. It reports whether err
// was nil.
func writeScanError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, menureview.ErrItemNotFound):
		http.Error(w, "menu item not found", http.StatusNotFound)
	case errors.Is(err, menureview.ErrInvalidTransition):
		http.Error(w, "not allowed in current state", http.StatusConflict)
	default:
		http.Error(w, "bad request", http.StatusBadRequest)
	}
	return false
}

func (s *Server) handleScanSubmit(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.scanScreen(w)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Error("failed to remove upload temp files", "error", err)
		}
	}()

	headers := r.MultipartForm.File["menu"]
	files := make([]menureview.File, len(headers))
	for i, h := range headers {
		files[i] = formFile{header: h}
	}

	// Extraction runs under the screen's context, not the request's.
	if !writeScanError(w, scan.machine.Submit(scan.ctx, files)) {
		return
	}
	s.renderScanPanel(w, scan, "")
}

func (s *Server) handleScanRetry(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.scanScreen(w)
	if !ok {
		return
	}
	if !writeScanError(w, scan.machine.Retry()) {
		return
	}
	s.renderScanPanel(w, scan, "")
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.scanScreen(w)
	if !ok {
		return
	}
	if _, err := scan.machine.AddItem(); !writeScanError(w, err) {
		return
	}
	s.renderScanPanel(w, scan, "")
}

func (s *Server) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.scanScreen(w)
	if !ok {
		return
	}
	if !writeScanError(w, scan.machine.StartEdit(r.PathValue("id"))) {
		return
	}
	s.renderScanPanel(w, scan, "")
}

func (s *Server) handleFinishEdit(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.scanScreen(w)
	if !ok {
		return
	}
	scan.machine.FinishEdit()
	s.renderScanPanel(w, scan, "")
}

// handleUpdateItem applies every editable field present in the form. A
// checkbox that is unchecked is absent from the form, so the edit form sends a
// hidden "false" ahead of it and the last value wins.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.scanScreen(w)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	formError := ""
	for _, field := range editableFields {
		values, present := r.PostForm[string(field)]
		if !present || len(values) == 0 {
			continue
		}
		err := scan.machine.UpdateField(id, field, values[len(values)-1])
		if errors.Is(err, menureview.ErrInvalidPrice) {
			formError = invalidPriceMessage
			continue
		}
		if !writeScanError(w, err) {
			return
		}
	}
	s.renderScanPanel(w, scan, formError)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.scanScreen(w)
	if !ok {
		return
	}
	if !writeScanError(w, scan.machine.RemoveItem(r.PathValue("id"))) {
		return
	}
	s.renderScanPanel(w, scan, "")
}
