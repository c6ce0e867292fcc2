package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/booking"
)

// handlePreCheckout re-checks the slot before Telegram charges the user. It
// narrows the window for a double booking; CreateAppointment stays the
// authority.
func (b *Bot) handlePreCheckout(ctx context.Context, ev Event) error {
	log := zerolog.Ctx(ctx)
	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: ev.QueryID, OK: true}

	payload, err := booking.ParseInvoicePayload(ev.Payload)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("payload", ev.Payload).Msg("rejecting checkout with malformed payload")
		answer.OK, answer.ErrorMessage = false, textInvalidOrder
	case payload.UserID != ev.UserID:
		log.Warn().Int64("payload_user_id", payload.UserID).Msg("rejecting checkout for another user")
		answer.OK, answer.ErrorMessage = false, textInvalidOrder
	default:
		free, err := b.slotOffered(ctx, booking.Slot{Date: payload.Date, Hour: payload.Hour})
		switch {
		case err != nil:
			log.Error().Err(err).Msg("free slot check failed")
			answer.OK, answer.ErrorMessage = false, textUnavailable
		case !free:
			answer.OK, answer.ErrorMessage = false, textTakenAtCheck
		}
	}

	if _, err := b.tg.Request(answer); err != nil {
		return fmt.Errorf("answer pre-checkout: %w", err)
	}
	if answer.OK {
		b.state.Set(ev.UserID, StateAwaitingPayment)
	}
	return nil
}

func (b *Bot) slotOffered(ctx context.Context, slot booking.Slot) (bool, error) {
	days, err := b.ledger.FreeDates(ctx)
	if err != nil {
		return false, err
	}
	date := booking.DateOf(slot.Date)
	for _, day := range days {
		if !day.Date.Equal(date) {
			continue
		}
		for _, hour := range day.Hours {
			if hour == slot.Hour {
				return true, nil
			}
		}
	}
	return false, nil
}

// handlePayment records the paid booking and thanks the user. Whatever
// happens the user ends up with a fresh menu.
func (b *Bot) handlePayment(ctx context.Context, ev Event) error {
	log := zerolog.Ctx(ctx)
	b.state.Set(ev.UserID, StateConfirmed)

	payload, err := booking.ParseInvoicePayload(ev.Payload)
	if err != nil {
		log.Error().Err(err).Str("payload", ev.Payload).Msg("paid invoice has malformed payload")
		return b.apologize(ev, textBookingError, err)
	}

	appt, err := b.ledger.CreateAppointment(ctx, payload.Appointment())
	if err != nil {
		if booking.IsConflict(err) {
			log.Warn().Err(err).Str("slot", payload.Appointment().Slot().Key()).Msg("paid slot already taken, refund required")
			return b.apologize(ev, textSlotGone, nil)
		}
		log.Error().Err(err).Msg("failed to create paid appointment")
		return b.apologize(ev, textBookingError, err)
	}
	log.Info().Str("slot", appt.Slot().Key()).Msg("appointment created")

	if payload.InitMessageID != 0 {
		if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(ev.ChatID, payload.InitMessageID)); err != nil {
			log.Warn().Err(err).Int("message_id", payload.InitMessageID).Msg("failed to delete order prompt")
		}
	}
	if b.settings.StickerID != "" {
		if _, err := b.tg.Send(tgbotapi.NewSticker(ev.ChatID, tgbotapi.FileID(b.settings.StickerID))); err != nil {
			log.Warn().Err(err).Msg("failed to send sticker")
		}
	}
	if _, err := b.send(ev.ChatID, screen{text: textThanks}); err != nil {
		return fmt.Errorf("send thanks: %w", err)
	}
	return b.show(ctx, ev, StateMenu, 0)
}

// apologize tells the user what went wrong and returns to the menu. cause is
// reported as the update's error.
func (b *Bot) apologize(ev Event, text string, cause error) error {
	if _, err := b.send(ev.ChatID, screen{text: text}); err != nil {
		return fmt.Errorf("send apology: %w", err)
	}
	if _, err := b.send(ev.ChatID, b.menuScreen(ev.MessageID)); err != nil {
		return fmt.Errorf("render menu: %w", err)
	}
	b.state.Set(ev.UserID, StateMenu)
	return cause
}
