// Package menureview drives the scan-to-edit workflow of the menu scanner:
// a photo is uploaded, analyzed by the AI gateway, and the extracted items are
// reviewed and edited in place.
package menureview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/gateway"
)

type State string

const (
	StateUpload    State = "upload"
	StateAnalyzing State = "analyzing"
	StateReview    State = "review"
	StateError     State = "error"
)

// User-facing messages for failures that never reach the gateway.
const (
	ReadFailedMessage       = "Greška pri čitanju datoteke."
	UnsupportedImageMessage = "Nepodržan format slike. Koristite JPG, PNG, GIF ili WEBP."
	UnknownFailureMessage   = "Došlo je do nepoznate greške."
)

var (
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrItemNotFound      = errors.New("menu item not found")
	ErrUnknownField      = errors.New("unknown menu item field")
	ErrInvalidPrice      = errors.New("price is not a number")
)

// File is one selected upload.
type File interface {
	Open() (io.ReadCloser, error)
}

// Field names an editable MenuItem field.
type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldPrice       Field = "price"
	FieldCurrency    Field = "currency"
	FieldCategory    Field = "category"
	FieldVegetarian  Field = "isVegetarian"
	FieldAllergens   Field = "allergens"
)

// Snapshot is a copy of the machine's state safe to render.
type Snapshot struct {
	State        State
	Items        []domain.MenuItem
	ErrorMessage string
	EditingID    string
}

// Machine is the per-screen review state. It is safe for concurrent use but
// only one Submit can be in flight.
type Machine struct {
	extractor gateway.MenuExtractor
	logger    *slog.Logger
	observe   func(from, to State)

	mu        sync.Mutex
	state     State
	items     []domain.MenuItem
	errMsg    string
	editingID string
}

type Option func(*Machine)

// WithObserver registers fn to be called on every state transition, outside
// the machine's lock.
func WithObserver(fn func(from, to State)) Option {
	return func(m *Machine) { m.observe = fn }
}

func New(extractor gateway.MenuExtractor, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		extractor: extractor,
		logger:    logger,
		state:     StateUpload,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.MenuItem, len(m.items))
	for i, item := range m.items {
		item.Allergens = append([]string(nil), item.Allergens...)
		items[i] = item
	}
	return Snapshot{State: m.state, Items: items, ErrorMessage: m.errMsg, EditingID: m.editingID}
}

// transition must be called with m.mu held; it returns the observer call to
// run after unlocking.
func (m *Machine) transition(to State) func() {
	from := m.state
	m.state = to
	m.logger.Debug("menu review transition", "from", from, "to", to)
	if m.observe == nil {
		return func() {}
	}
	return func() { m.observe(from, to) }
}

// Submit processes the first of files. Further files are ignored: only one
// photo per menu is supported. With no files it does nothing.
func (m *Machine) Submit(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return nil
	}
	if len(files) > 1 {
		m.logger.Info("multiple menu photos selected, processing only the first", "count", len(files))
	}

	m.mu.Lock()
	if m.state != StateUpload {
		m.mu.Unlock()
		return fmt.Errorf("submit in state %s: %w", m.state, ErrInvalidTransition)
	}
	notify := m.transition(StateAnalyzing)
	m.mu.Unlock()
	notify()

	items, msg := m.analyze(ctx, files[0])

	m.mu.Lock()
	if msg != "" {
		m.errMsg = msg
		m.items = nil
		notify = m.transition(StateError)
	} else {
		m.items = items
		m.editingID = ""
		notify = m.transition(StateReview)
	}
	m.mu.Unlock()
	notify()
	return nil
}

// analyze returns either the extracted items with fresh IDs or the message to
// show in the error state.
func (m *Machine) analyze(ctx context.Context, f File) ([]domain.MenuItem, string) {
	rc, err := f.Open()
	if err != nil {
		m.logger.Error("open menu photo failed", "error", err)
		return nil, ReadFailedMessage
	}
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); cerr != nil {
		m.logger.Error("failed to close menu photo", "error", cerr)
	}
	if err != nil {
		m.logger.Error("read menu photo failed", "error", err)
		return nil, ReadFailedMessage
	}

	mimeType, ok := gateway.DetectImageMIME(data)
	if !ok {
		return nil, UnsupportedImageMessage
	}

	m.logger.Info("menu extraction started", "mime_type", mimeType, "bytes", len(data))
	extracted, err := m.extractor.ExtractMenu(ctx, bytes.NewReader(data), mimeType)
	if err != nil {
		m.logger.Error("menu extraction failed", "error", err)
		return nil, userMessage(err)
	}
	m.logger.Info("menu extraction complete", "items_detected", len(extracted))

	items := make([]domain.MenuItem, len(extracted))
	for i, item := range extracted {
		item.ID = uuid.NewString()
		if item.Allergens == nil {
			item.Allergens = []string{}
		}
		items[i] = item
	}
	return items, ""
}

func userMessage(err error) string {
	var withMessage interface{ UserMessage() string }
	if errors.As(err, &withMessage) {
		return withMessage.UserMessage()
	}
	return UnknownFailureMessage
}

// Retry leaves the error state and discards everything from the failed
// attempt.
func (m *Machine) Retry() error {
	m.mu.Lock()
	if m.state != StateError {
		m.mu.Unlock()
		return fmt.Errorf("retry in state %s: %w", m.state, ErrInvalidTransition)
	}
	m.errMsg = ""
	m.items = nil
	m.editingID = ""
	notify := m.transition(StateUpload)
	m.mu.Unlock()
	notify()
	return nil
}

func (m *Machine) indexOf(id string) int {
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}

// StartEdit puts the item in edit mode. Any other item being edited returns
// to view mode.
func (m *Machine) StartEdit(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReview {
		return ErrInvalidTransition
	}
	if m.indexOf(id) < 0 {
		return ErrItemNotFound
	}
	m.editingID = id
	return nil
}

func (m *Machine) FinishEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editingID = ""
}

// UpdateField sets one field of an item from its form value. Values are not
// validated beyond what is needed to store them: a price must parse as a
// number, currency and category are stored as given.
func (m *Machine) UpdateField(id string, field Field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReview {
		return ErrInvalidTransition
	}
	i := m.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}
	item := &m.items[i]

	switch field {
	case FieldName:
		item.Name = value
	case FieldDescription:
		item.Description = value
	case FieldPrice:
		price, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(value, ",", ".")), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPrice, value)
		}
		item.Price = price
	case FieldCurrency:
		item.Currency = domain.Currency(value)
	case FieldCategory:
		item.Category = domain.Category(value)
	case FieldVegetarian:
		item.IsVegetarian = value == "true" || value == "on"
	case FieldAllergens:
		item.Allergens = splitAllergens(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func splitAllergens(value string) []string {
	allergens := []string{}
	for _, a := range strings.Split(value, ",") {
		if a = strings.TrimSpace(a); a != "" {
			allergens = append(allergens, a)
		}
	}
	return allergens
}

// AddItem appends an empty item and opens it for editing.
func (m *Machine) AddItem() (domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReview {
		return domain.MenuItem{}, ErrInvalidTransition
	}
	item := domain.MenuItem{
		ID:        uuid.NewString(),
		Category:  domain.Categories[0],
		Currency:  domain.CurrencyEuro,
		Allergens: []string{},
	}
	m.items = append(m.items, item)
	m.editingID = item.ID
	return item, nil
}

func (m *Machine) RemoveItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReview {
		return ErrInvalidTransition
	}
	i := m.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	if m.editingID == id {
		m.editingID = ""
	}
	return nil
}
