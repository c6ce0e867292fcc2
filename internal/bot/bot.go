// Package bot is the Telegram conversation controller: it turns updates into
// events, renders the menu screens and finishes the payment flow.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/observability/metrics"
)

// Ledger is the booking backend as seen by the bot. Both the backend HTTP
// client and an in-process booking.Service satisfy it.
type Ledger interface {
	FreeDates(ctx context.Context) ([]booking.DaySlots, error)
	ActiveAppointments(ctx context.Context, userID int64) ([]booking.ActiveAppointment, error)
	CreateAppointment(ctx context.Context, n booking.NewAppointment) (*booking.Appointment, error)
}

// Settings are the salon facts shown to users.
type Settings struct {
	WebAppURL   string
	Hours       booking.Hours
	Address     string
	Latitude    float64
	Longitude   float64
	Phone       string
	ContactName string
	StickerID   string
}

type Deps struct {
	Telegram      TelegramClient
	Ledger        Ledger
	Settings      Settings
	Metrics       *metrics.BookingMetrics
	Logger        zerolog.Logger
	MaxConcurrent int
}

type Bot struct {
	tg       TelegramClient
	ledger   Ledger
	settings Settings
	metrics  *metrics.BookingMetrics
	logger   zerolog.Logger
	state    *stateStore
	sem      chan struct{}
}

func New(deps Deps) (*Bot, error) {
	if deps.Telegram == nil {
		return nil, errors.New("telegram client is nil")
	}
	if deps.Ledger == nil {
		return nil, errors.New("ledger is nil")
	}
	if deps.Settings.Hours == (booking.Hours{}) {
		deps.Settings.Hours = booking.DefaultHours
	}
	if deps.MaxConcurrent <= 0 {
		deps.MaxConcurrent = 1
	}
	return &Bot{
		tg:       deps.Telegram,
		ledger:   deps.Ledger,
		settings: deps.Settings,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		state:    newStateStore(),
		sem:      make(chan struct{}, deps.MaxConcurrent),
	}, nil
}

// Run polls for updates until ctx is cancelled, handling each on its own
// goroutine. It returns after in-flight updates finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case b.sem <- struct{}{}:
			case <-ctx.Done():
				b.tg.StopReceivingUpdates()
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-b.sem }()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate processes one update. Failures and panics are logged and stay
// confined to this update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, ok := EventFromUpdate(update)
	if !ok {
		return
	}

	l := b.logger.With().
		Str("request_id", uuid.New().String()).
		Int("update_id", update.UpdateID).
		Str("kind", ev.Kind.String()).
		Int64("user_id", ev.UserID).
		Logger()
	ctx = l.WithContext(ctx)

	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			l.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("update handler panicked")
		}
		b.metrics.ObserveUpdate(ev.Kind.String(), outcome, time.Since(start).Seconds())
	}()

	if err := b.dispatch(ctx, ev); err != nil {
		outcome = "error"
		if errors.Is(err, ErrUnknownAction) {
			outcome = "rejected"
		}
		l.Error().Err(err).Msg("update failed")
	}
}

func (b *Bot) dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventCommand:
		return b.handleCommand(ctx, ev)
	case EventCallback:
		return b.handleCallback(ctx, ev)
	case EventPreCheckout:
		return b.handlePreCheckout(ctx, ev)
	case EventPayment:
		return b.handlePayment(ctx, ev)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, ev Event) error {
	st, ok := commandStates[ev.Command]
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("command", ev.Command).Msg("ignoring unknown command")
		return nil
	}
	return b.show(ctx, ev, st, 0)
}

func (b *Bot) handleCallback(ctx context.Context, ev Event) error {
	defer func() {
		if _, err := b.tg.Request(tgbotapi.NewCallback(ev.CallbackID, "")); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to answer callback query")
		}
	}()

	action, err := ParseAction(ev.Data)
	if err != nil {
		return err
	}

	switch action.Kind {
	case ActionAddress:
		b.state.Set(ev.UserID, StateAddress)
		return b.showAddress(ctx, ev)
	case ActionContacts:
		b.state.Set(ev.UserID, StateContacts)
		return b.showContacts(ctx, ev)
	case ActionActiveNav:
		return b.show(ctx, ev, StateActiveList, action.TargetPage())
	default:
		return b.show(ctx, ev, action.State(), 0)
	}
}

// show renders the screen of st and records it as the user's state.
func (b *Bot) show(ctx context.Context, ev Event, st State, page int) error {
	var s screen
	switch st {
	case StateInfo:
		s = b.infoScreen()
	case StateActiveList:
		active, err := b.ledger.ActiveAppointments(ctx, ev.UserID)
		if err != nil {
			return fmt.Errorf("load active appointments: %w", err)
		}
		s = activeScreen(active, page)
	default:
		st = StateMenu
		s = b.menuScreen(ev.MessageID)
	}

	if err := b.deliver(ev, s); err != nil {
		return fmt.Errorf("render %s: %w", st, err)
	}
	b.state.Set(ev.UserID, st)
	return nil
}

func (b *Bot) showAddress(ctx context.Context, ev Event) error {
	if err := b.edit(ev.ChatID, ev.MessageID, screen{text: b.settings.Address}); err != nil {
		return fmt.Errorf("show address: %w", err)
	}
	if _, err := b.tg.Send(tgbotapi.NewLocation(ev.ChatID, b.settings.Latitude, b.settings.Longitude)); err != nil {
		return fmt.Errorf("send location: %w", err)
	}
	return b.showInfoBelow(ev)
}

func (b *Bot) showContacts(ctx context.Context, ev Event) error {
	if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(ev.ChatID, ev.MessageID)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int("message_id", ev.MessageID).Msg("failed to delete message")
	}
	if _, err := b.tg.Send(tgbotapi.NewContact(ev.ChatID, b.settings.Phone, b.settings.ContactName)); err != nil {
		return fmt.Errorf("send contact: %w", err)
	}
	return b.showInfoBelow(ev)
}

// showInfoBelow sends the info screen as a new message, which leaves the user
// back in StateInfo.
func (b *Bot) showInfoBelow(ev Event) error {
	if _, err := b.send(ev.ChatID, b.infoScreen()); err != nil {
		return fmt.Errorf("render info: %w", err)
	}
	b.state.Set(ev.UserID, StateInfo)
	return nil
}

// State reports the user's current conversation state.
func (b *Bot) State(userID int64) State {
	return b.state.Get(userID)
}
