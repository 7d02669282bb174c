package gateway

import (
	"context"
	"io"

	"github.com/vbonduro/restaurantqr/internal/domain"
)

// ExtractionPrompt is the shared instruction sent alongside the menu photo by
// all backends.
const ExtractionPrompt = `Prepoznaj sve stavke s jelovnika na ovoj slici. Precizno slijedi zadanu JSON shemu. Analiziraj jelovnik na hrvatskom jeziku. Napiši opise na hrvatskom.
Odgovori isključivo JSON nizom, bez ikakvog dodatnog teksta.`

// MenuSchema is the JSON schema every extraction reply must follow.
const MenuSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "category": {"type": "string", "enum": ["Predjela", "Glavna jela", "Deserti", "Pića"], "description": "Kategorija jela."},
      "name": {"type": "string", "description": "Naziv jela."},
      "description": {"type": "string", "description": "Kratak, primamljiv opis jela."},
      "price": {"type": "number", "description": "Cijena jela."},
      "currency": {"type": "string", "enum": ["kn", "€"], "description": "Valuta."},
      "isVegetarian": {"type": "boolean", "description": "Istina ako je jelo vegetarijansko."},
      "allergens": {"type": "array", "items": {"type": "string"}, "description": "Popis potencijalnih alergena."}
    },
    "required": ["category", "name", "price", "currency", "description"]
  }
}`

// ExtractionInstruction joins the prompt and the schema into the single text
// block sent to the model.
func ExtractionInstruction() string {
	return ExtractionPrompt + "\n\nJSON shema:\n" + MenuSchema
}

// AdvisorPersona is the system instruction every advisor session starts with.
const AdvisorPersona = `Ti si AI savjetnik za hrvatske ugostitelje, pomažeš im digitalizirati poslovanje pomoću QR kodova i digitalnih jelovnika. Tvoje ime je 'RestaurantQR Pro Savjetnik'. Započni razgovor predstavljanjem i pitaj korisnika o vrsti objekta (restoran/kafić/bistro/pizzeria), broju stolova i ima li već digitalni jelovnik. Tvoj ton treba biti uslužan, prijateljski i profesionalan. Vodi ih korak po korak na temelju njihovih odgovora. Uvijek komuniciraj na hrvatskom jeziku.`

// GreetingPrompt replaces an empty first turn. Both backends reject empty
// user content, and the persona already tells the model how to open.
const GreetingPrompt = "Pozdrav!"

type MenuExtractor interface {
	// ExtractMenu returns the items found in the image. Returned items carry
	// no ID. Every failure is an *ExtractionError.
	ExtractMenu(ctx context.Context, r io.Reader, mimeType string) ([]domain.MenuItem, error)
}

type AdvisorFactory interface {
	NewAdvisorSession(ctx context.Context) (Session, error)
}

// Session is one multi-turn advisor conversation. Turns must not overlap.
type Session interface {
	// Send starts a turn and returns its reply as a channel of fragments. The
	// channel is closed when the reply ends or ctx is cancelled. A failure
	// after the stream started is delivered as a final Fragment with Err set
	// to a *ChatError; fragments delivered before it stay valid. The turn is
	// only kept in the session history if it completes.
	Send(ctx context.Context, text string) (<-chan Fragment, error)
}

// Gateway is implemented by every backend.
type Gateway interface {
	MenuExtractor
	AdvisorFactory
}

// Fragment is either one piece of a streamed reply or the error that ended it.
type Fragment struct {
	Text string
	Err  error
}
