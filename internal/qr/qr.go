package qr

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/vbonduro/restaurantqr/internal/domain"
)

const (
	DefaultSize     = 256
	DefaultMenuLink = "https://example.com/menu"
)

// DefaultKind is selected when the generator opens.
const DefaultKind = domain.QRMenu

var (
	ErrEmptyPayload = errors.New("qr payload is empty")
	ErrInvalidColor = errors.New("invalid color")
)

// Kind is a selectable QR code kind with its display name.
type Kind struct {
	ID   domain.QRKind
	Name string
}

// Kinds lists the kinds offered in the generator, in display order. Social is
// a valid kind but is not offered as a button.
func Kinds() []Kind {
	return []Kind{
		{ID: domain.QRMenu, Name: "Digitalni Meni"},
		{ID: domain.QRWiFi, Name: "Wi-Fi Pristup"},
		{ID: domain.QRReview, Name: "Google Recenzije"},
		{ID: domain.QRPayment, Name: "Plaćanje"},
		{ID: domain.QRReservation, Name: "Rezervacije"},
		{ID: domain.QRContact, Name: "Kontakt"},
	}
}

func DefaultFields() domain.QRFields {
	return domain.QRFields{Text: DefaultMenuLink}
}

func DefaultStyle() domain.QRStyle {
	return domain.QRStyle{Foreground: "#ffffff", Background: "#111827"}
}

// Encode returns the exact string to put in the symbol. Wi-Fi credentials are
// substituted verbatim: characters with meaning in the WIFI: format (';', ':',
// '\\', ',') are not escaped.
func Encode(kind domain.QRKind, fields domain.QRFields) string {
	switch kind {
	case domain.QRWiFi:
		return "WIFI:T:WPA;S:" + fields.SSID + ";P:" + fields.Password + ";;"
	default:
		return fields.Text
	}
}

// Filename is the download name of the PNG for kind.
func Filename(kind domain.QRKind) string {
	return fmt.Sprintf("restaurant-qr-%s.png", kind)
}

type Options struct {
	Size  int
	Style domain.QRStyle
}

// Render draws payload as a PNG with the highest error correction level (H,
// 30%) and a quiet-zone border.
func Render(payload string, opts Options) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}

	fg, err := ParseColor(opts.Style.Foreground)
	if err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	bg, err := ParseColor(opts.Style.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	code, err := qrcode.New(payload, qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}
	code.ForegroundColor = fg
	code.BackgroundColor = bg
	code.DisableBorder = false

	png, err := code.PNG(opts.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr: %w", err)
	}
	return png, nil
}

// ParseColor accepts "#rgb" or "#rrggbb", as produced by an HTML color input.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}
