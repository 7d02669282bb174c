package qr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/restaurantqr/internal/domain"
)

func TestEncodePassthrough(t *testing.T) {
	fields := domain.QRFields{Text: "https://bistro.hr/jelovnik", SSID: "ignored", Password: "ignored"}

	for _, kind := range []domain.QRKind{
		domain.QRMenu, domain.QRContact, domain.QRSocial, domain.QRReview, domain.QRPayment, domain.QRReservation,
	} {
		t.Run(string(kind), func(t *testing.T) {
			assert.Equal(t, fields.Text, Encode(kind, fields))
		})
	}
}

func TestEncodeWiFi(t *testing.T) {
	tests := []struct {
		name   string
		fields domain.QRFields
		want   string
	}{
		{
			name:   "plain",
			fields: domain.QRFields{SSID: "Cafe", Password: "secret"},
			want:   "WIFI:T:WPA;S:Cafe;P:secret;;",
		},
		{
			name:   "special characters are not escaped",
			fields: domain.QRFields{SSID: "Bar;Gost", Password: "a:b\\c"},
			want:   "WIFI:T:WPA;S:Bar;Gost;P:a:b\\c;;",
		},
		{
			name:   "empty credentials still produce a payload",
			fields: domain.QRFields{},
			want:   "WIFI:T:WPA;S:;P:;;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(domain.QRWiFi, tt.fields))
		})
	}
}

func TestDefaultsAreNonEmpty(t *testing.T) {
	for _, k := range Kinds() {
		assert.NotEmpty(t, Encode(k.ID, DefaultFields()), "kind %s", k.ID)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "restaurant-qr-wifi.png", Filename(domain.QRWiFi))
	assert.Equal(t, "restaurant-qr-menu.png", Filename(domain.QRMenu))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#111827")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xFF}, c)

	c, err = ParseColor("#fff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, c)

	for _, bad := range []string{"", "#12345", "#gggggg", "red"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrInvalidColor, bad)
	}
}

func TestRender(t *testing.T) {
	data, err := Render("https://example.com/menu", Options{Size: 256, Style: DefaultStyle()})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())

	// The corner sits in the quiet zone and carries the background color.
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0x11, 0x18, 0x27}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestRenderErrors(t *testing.T) {
	_, err := Render("", Options{Style: DefaultStyle()})
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Render("x", Options{Style: domain.QRStyle{Foreground: "nope", Background: "#000"}})
	assert.ErrorIs(t, err, ErrInvalidColor)
}
