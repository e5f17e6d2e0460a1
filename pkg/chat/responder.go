package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/ib-77/chatflow/pkg/flow"
	"github.com/ib-77/chatflow/pkg/flow/bus"
)

// Fields added by the responder.
const (
	FieldResponse      = "response"
	FieldRespondedAt   = "respondedAt"
	FieldRespondedDate = "respondedDate"
	FieldRespondedTime = "respondedTime"
)

const ResponderStage = "responder"

var templates = map[Category]func(text string) string{
	Greeting: func(string) string {
		return "Hello! Thanks for reaching out. How can I help you today?"
	},
	Farewell: func(string) string {
		return "Goodbye! Have a great day ahead."
	},
	Question: func(text string) string {
		return fmt.Sprintf("That's a great question. Let me look into \"%s\" for you.", text)
	},
	Command: func(text string) string {
		return fmt.Sprintf("Processing your request: \"%s\". Please wait...", text)
	},
	Gratitude: func(string) string {
		return "You're welcome! Happy to help."
	},
	Apology: func(string) string {
		return "No worries at all! How can I assist you?"
	},
	Agreement: func(string) string {
		return "Great, glad we're on the same page!"
	},
	Negation: func(string) string {
		return "Understood. Let me know if there's anything else."
	},
	General: func(text string) string {
		return fmt.Sprintf("I received your message: \"%s\". How can I assist further?", text)
	},
}

// Respond renders the reply for text in category. Unknown categories get
// the General reply.
func Respond(category Category, text string) string {
	tmpl, ok := templates[category]
	if !ok {
		tmpl = templates[General]
	}
	return tmpl(text)
}

// Responder is the stage factory for the "responder" stage. It expects the
// classification field; items without one are answered as General.
func Responder(b *bus.Bus) flow.Stage {
	return NewResponder(ResponderStage)(b)
}

// NewResponder returns a responder stage factory registered under name.
func NewResponder(name string) flow.StageFactory {
	return flow.StageFunc(name, respond)
}

func respond(_ context.Context, item flow.Item) (flow.Item, error) {
	response := Respond(ClassificationOf(item), item.Text())
	now := time.Now()

	return item.
		With(FieldResponse, response).
		With(FieldRespondedAt, now).
		With(FieldRespondedDate, now.UTC().Format(dateLayout)).
		With(FieldRespondedTime, now.Format(timeLayout)), nil
}

func ResponseOf(item flow.Item) string {
	return item.String(FieldResponse)
}
