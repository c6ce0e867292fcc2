package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventCallback
	EventPreCheckout
	EventPayment
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	case EventPreCheckout:
		return "pre_checkout"
	case EventPayment:
		return "payment"
	default:
		return "unknown"
	}
}

// Event is the inbound update reduced to what the controller acts on. Kind
// selects which of the optional fields are set:
//
//	EventCommand     Command
//	EventCallback    CallbackID, Data
//	EventPreCheckout QueryID, Payload
//	EventPayment     Payload
type Event struct {
	Kind      EventKind
	ChatID    int64
	MessageID int
	UserID    int64

	Command    string
	CallbackID string
	Data       string
	QueryID    string
	Payload    string
}

// EventFromUpdate converts a Telegram update. Updates the controller does not
// handle report false.
func EventFromUpdate(u tgbotapi.Update) (Event, bool) {
	switch {
	case u.PreCheckoutQuery != nil:
		q := u.PreCheckoutQuery
		ev := Event{
			Kind:    EventPreCheckout,
			QueryID: q.ID,
			Payload: q.InvoicePayload,
		}
		if q.From != nil {
			ev.UserID = q.From.ID
			ev.ChatID = q.From.ID
		}
		return ev, true

	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		ev := Event{
			Kind:       EventCallback,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		if cq.From != nil {
			ev.UserID = cq.From.ID
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		return ev, true

	case u.Message != nil:
		m := u.Message
		ev := Event{MessageID: m.MessageID}
		if m.Chat != nil {
			ev.ChatID = m.Chat.ID
		}
		if m.From != nil {
			ev.UserID = m.From.ID
		}
		switch {
		case m.SuccessfulPayment != nil:
			ev.Kind = EventPayment
			ev.Payload = m.SuccessfulPayment.InvoicePayload
		case m.IsCommand():
			ev.Kind = EventCommand
			ev.Command = m.Command()
		default:
			return Event{}, false
		}
		return ev, true
	}
	return Event{}, false
}
