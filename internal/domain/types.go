package domain

type Category string

const (
	CategoryAppetizers Category = "Predjela"
	CategoryMains      Category = "Glavna jela"
	CategoryDesserts   Category = "Deserti"
	CategoryDrinks     Category = "Pića"
)

// Categories lists every menu category in display order.
var Categories = []Category{CategoryAppetizers, CategoryMains, CategoryDesserts, CategoryDrinks}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Currency string

const (
	CurrencyKuna Currency = "kn"
	CurrencyEuro Currency = "€"
)

var Currencies = []Currency{CurrencyEuro, CurrencyKuna}

func (c Currency) Valid() bool {
	return c == CurrencyKuna || c == CurrencyEuro
}

type MenuItem struct {
	ID           string
	Category     Category
	Name         string
	Description  string
	Price        float64
	Currency     Currency
	IsVegetarian bool
	Allergens    []string
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

type ChatMessage struct {
	ID     string
	Sender Sender
	Text   string
}

type QRKind string

const (
	QRMenu        QRKind = "menu"
	QRWiFi        QRKind = "wifi"
	QRContact     QRKind = "contact"
	QRSocial      QRKind = "social"
	QRReview      QRKind = "review"
	QRPayment     QRKind = "payment"
	QRReservation QRKind = "reservation"
)

// QRFields holds the user-entered values for a QR code. SSID and Password are
// only read for QRWiFi; every other kind encodes Text.
type QRFields struct {
	Text     string
	SSID     string
	Password string
}

// QRStyle holds the display colors as "#rrggbb" strings.
type QRStyle struct {
	Foreground string
	Background string
}

type View string

const (
	ViewDashboard View = "dashboard"
	ViewScan      View = "ocr"
	ViewQR        View = "qr"
	ViewChat      View = "chat"
	ViewAnalytics View = "analytics"
	ViewSettings  View = "settings"
)

var Views = []View{ViewDashboard, ViewScan, ViewQR, ViewChat, ViewAnalytics, ViewSettings}
