package menureview

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/gateway"
)

// minimalJPEG is enough for http.DetectContentType to report image/jpeg.
var minimalJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

// stubExtractor is a minimal MenuExtractor for tests.
type stubExtractor struct {
	items    []domain.MenuItem
	err      error
	calls    int
	lastMIME string
}

func (s *stubExtractor) ExtractMenu(_ context.Context, r io.Reader, mimeType string) ([]domain.MenuItem, error) {
	s.calls++
	s.lastMIME = mimeType
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return s.items, s.err
}

type memFile struct {
	data    []byte
	openErr error
}

func (f memFile) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// transitionLog records observer calls.
type transitionLog struct {
	mu    sync.Mutex
	steps []State
}

func (l *transitionLog) record(from, to State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.steps) == 0 {
		l.steps = append(l.steps, from)
	}
	l.steps = append(l.steps, to)
}

func pizza() domain.MenuItem {
	return domain.MenuItem{
		Category:    domain.CategoryMains,
		Name:        "Pizza",
		Price:       50,
		Currency:    domain.CurrencyKuna,
		Description: "Margherita",
	}
}

func TestSubmitToReview(t *testing.T) {
	extractor := &stubExtractor{items: []domain.MenuItem{pizza()}}
	log := &transitionLog{}
	m := New(extractor, slog.Default(), WithObserver(log.record))

	assert.Equal(t, StateUpload, m.State())

	err := m.Submit(context.Background(), []File{memFile{data: minimalJPEG}})
	require.NoError(t, err)

	assert.Equal(t, []State{StateUpload, StateAnalyzing, StateReview}, log.steps)
	assert.Equal(t, "image/jpeg", extractor.lastMIME)

	snap := m.Snapshot()
	assert.Equal(t, StateReview, snap.State)
	require.Len(t, snap.Items, 1)
	assert.NotEmpty(t, snap.Items[0].ID)
	assert.Equal(t, "Pizza", snap.Items[0].Name)
	assert.Equal(t, 50.0, snap.Items[0].Price)
	assert.Equal(t, []string{}, snap.Items[0].Allergens)
}

func TestSubmitAssignsUniqueIDs(t *testing.T) {
	extractor := &stubExtractor{items: []domain.MenuItem{pizza(), pizza(), pizza()}}
	m := New(extractor, slog.Default())

	require.NoError(t, m.Submit(context.Background(), []File{memFile{data: minimalJPEG}}))

	seen := map[string]bool{}
	for _, item := range m.Snapshot().Items {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestSubmitOnlyFirstFile(t *testing.T) {
	extractor := &stubExtractor{items: []domain.MenuItem{pizza()}}
	m := New(extractor, slog.Default())

	second := memFile{openErr: errors.New("must not be opened")}
	require.NoError(t, m.Submit(context.Background(), []File{memFile{data: minimalJPEG}, second}))

	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, StateReview, m.State())
}

func TestSubmitNoFiles(t *testing.T) {
	extractor := &stubExtractor{}
	m := New(extractor, slog.Default())

	require.NoError(t, m.Submit(context.Background(), nil))
	assert.Equal(t, StateUpload, m.State())
	assert.Zero(t, extractor.calls)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name      string
		file      memFile
		extractor *stubExtractor
		wantMsg   string
	}{
		{
			name:      "extraction error",
			file:      memFile{data: minimalJPEG},
			extractor: &stubExtractor{err: gateway.NewExtractionError(errors.New("boom"))},
			wantMsg:   gateway.ExtractionFailedMessage,
		},
		{
			name:      "schema error is surfaced, not an empty review",
			file:      memFile{data: minimalJPEG},
			extractor: &stubExtractor{err: gateway.NewExtractionError(&gateway.SchemaError{Index: -1, Reason: "not an array"})},
			wantMsg:   gateway.ExtractionFailedMessage,
		},
		{
			name:      "unreadable file",
			file:      memFile{openErr: errors.New("permission denied")},
			extractor: &stubExtractor{},
			wantMsg:   ReadFailedMessage,
		},
		{
			name:      "not an image",
			file:      memFile{data: []byte("%PDF-1.4")},
			extractor: &stubExtractor{},
			wantMsg:   UnsupportedImageMessage,
		},
		{
			name:      "error without a user message",
			file:      memFile{data: minimalJPEG},
			extractor: &stubExtractor{err: errors.New("plain")},
			wantMsg:   UnknownFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &transitionLog{}
			m := New(tt.extractor, slog.Default(), WithObserver(log.record))

			require.NoError(t, m.Submit(context.Background(), []File{tt.file}))

			assert.Equal(t, []State{StateUpload, StateAnalyzing, StateError}, log.steps)
			snap := m.Snapshot()
			assert.Equal(t, tt.wantMsg, snap.ErrorMessage)
			assert.Empty(t, snap.Items)
		})
	}
}

func TestRetry(t *testing.T) {
	extractor := &stubExtractor{err: gateway.NewExtractionError(errors.New("boom"))}
	m := New(extractor, slog.Default())

	require.NoError(t, m.Submit(context.Background(), []File{memFile{data: minimalJPEG}}))
	require.Equal(t, StateError, m.State())

	require.NoError(t, m.Retry())
	snap := m.Snapshot()
	assert.Equal(t, StateUpload, snap.State)
	assert.Empty(t, snap.ErrorMessage)
	assert.Empty(t, snap.Items)

	// A second attempt works from the fresh upload state.
	extractor.err = nil
	extractor.items = []domain.MenuItem{pizza()}
	require.NoError(t, m.Submit(context.Background(), []File{memFile{data: minimalJPEG}}))
	assert.Equal(t, StateReview, m.State())
}

func TestInvalidTransitions(t *testing.T) {
	m := New(&stubExtractor{items: []domain.MenuItem{pizza()}}, slog.Default())

	assert.ErrorIs(t, m.Retry(), ErrInvalidTransition)
	assert.ErrorIs(t, m.StartEdit("x"), ErrInvalidTransition)
	_, err := m.AddItem()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.Submit(context.Background(), []File{memFile{data: minimalJPEG}}))
	assert.ErrorIs(t, m.Submit(context.Background(), []File{memFile{data: minimalJPEG}}), ErrInvalidTransition)
	assert.ErrorIs(t, m.Retry(), ErrInvalidTransition)
}

func reviewMachine(t *testing.T, items ...domain.MenuItem) (*Machine, []domain.MenuItem) {
	t.Helper()
	m := New(&stubExtractor{items: items}, slog.Default())
	require.NoError(t, m.Submit(context.Background(), []File{memFile{data: minimalJPEG}}))
	return m, m.Snapshot().Items
}

func TestEditSubState(t *testing.T) {
	first, second := pizza(), pizza()
	second.Name = "Lazanje"
	m, items := reviewMachine(t, first, second)

	assert.Empty(t, m.Snapshot().EditingID)

	require.NoError(t, m.StartEdit(items[0].ID))
	assert.Equal(t, items[0].ID, m.Snapshot().EditingID)

	// Editing another item moves the marker without an explicit finish.
	require.NoError(t, m.StartEdit(items[1].ID))
	assert.Equal(t, items[1].ID, m.Snapshot().EditingID)

	m.FinishEdit()
	assert.Empty(t, m.Snapshot().EditingID)

	assert.ErrorIs(t, m.StartEdit("missing"), ErrItemNotFound)
}

func TestUpdateField(t *testing.T) {
	m, items := reviewMachine(t, pizza())
	id := items[0].ID

	require.NoError(t, m.UpdateField(id, FieldName, "Pizza Capricciosa"))
	require.NoError(t, m.UpdateField(id, FieldDescription, "Šunka, gljive"))
	require.NoError(t, m.UpdateField(id, FieldPrice, "8,50"))
	require.NoError(t, m.UpdateField(id, FieldCurrency, "€"))
	require.NoError(t, m.UpdateField(id, FieldCategory, "Predjela"))
	require.NoError(t, m.UpdateField(id, FieldVegetarian, "on"))
	require.NoError(t, m.UpdateField(id, FieldAllergens, "gluten, mlijeko,,"))

	got := m.Snapshot().Items[0]
	assert.Equal(t, domain.MenuItem{
		ID:           id,
		Category:     domain.CategoryAppetizers,
		Name:         "Pizza Capricciosa",
		Description:  "Šunka, gljive",
		Price:        8.5,
		Currency:     domain.CurrencyEuro,
		IsVegetarian: true,
		Allergens:    []string{"gluten", "mlijeko"},
	}, got)
}

func TestUpdateFieldRejects(t *testing.T) {
	m, items := reviewMachine(t, pizza())
	id := items[0].ID

	assert.ErrorIs(t, m.UpdateField(id, FieldPrice, "pedeset"), ErrInvalidPrice)
	assert.Equal(t, 50.0, m.Snapshot().Items[0].Price)

	assert.ErrorIs(t, m.UpdateField(id, Field("id"), "x"), ErrUnknownField)
	assert.ErrorIs(t, m.UpdateField("missing", FieldName, "x"), ErrItemNotFound)
}

func TestSnapshotIsACopy(t *testing.T) {
	item := pizza()
	item.Allergens = []string{"gluten"}
	m, items := reviewMachine(t, item)

	items[0].Name = "changed"
	items[0].Allergens[0] = "changed"

	got := m.Snapshot().Items[0]
	assert.Equal(t, "Pizza", got.Name)
	assert.Equal(t, []string{"gluten"}, got.Allergens)
}

func TestAddAndRemoveItem(t *testing.T) {
	m, items := reviewMachine(t, pizza())

	added, err := m.AddItem()
	require.NoError(t, err)
	snap := m.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, added.ID, snap.EditingID)
	assert.Equal(t, domain.CategoryAppetizers, snap.Items[1].Category)
	assert.NotEqual(t, items[0].ID, added.ID)

	require.NoError(t, m.RemoveItem(added.ID))
	snap = m.Snapshot()
	assert.Len(t, snap.Items, 1)
	assert.Empty(t, snap.EditingID)

	assert.ErrorIs(t, m.RemoveItem(added.ID), ErrItemNotFound)
}
