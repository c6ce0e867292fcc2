package bot

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hackgods/salon-appointment-bot/internal/booking"
)

const activePageSize = 3

const (
	textNoActive     = "You don't have any active appointments yet"
	textThanks       = "Thank you for your appointment! Your appointment has been successfully created. We look forward to seeing you at the salon!"
	textSlotGone     = "Sorry, the selected time is no longer available. Your payment will be refunded manually, our administrator will contact you."
	textBookingError = "Sorry, we could not create your appointment. Our administrator will contact you shortly."
	textInvalidOrder = "Sorry, this order is no longer valid. Please start again from the menu."
	textTakenAtCheck = "Sorry, this time has just been booked. Please choose another one."
	textUnavailable  = "Booking is temporarily unavailable. Please try again in a minute."
)

func (b *Bot) menuScreen(initMessageID int) screen {
	orderURL := fmt.Sprintf("%s/make_order?%s", b.settings.WebAppURL, url.Values{
		"init_message_id": {strconv.Itoa(initMessageID)},
	}.Encode())

	return screen{
		text: "Menu",
		keyboard: keyboard(
			row(inlineButton{Text: "Services", WebApp: &webAppInfo{URL: orderURL}}),
			row(callbackButton("Information", Action{Kind: ActionInfo})),
			row(callbackButton("Active Appointments", Action{Kind: ActionActive})),
		),
	}
}

func (b *Bot) infoScreen() screen {
	return screen{
		text: openingHoursText(b.settings.Hours),
		keyboard: keyboard(
			row(callbackButton("Address", Action{Kind: ActionAddress})),
			row(callbackButton("Contacts", Action{Kind: ActionContacts})),
			row(callbackButton("< Menu", Action{Kind: ActionMenu})),
		),
	}
}

func openingHoursText(h booking.Hours) string {
	return fmt.Sprintf("🕓 We are open every day from %s to %s", clockHour(h.Open), clockHour(h.Close))
}

func clockHour(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("3:04 PM")
}

func menuOnly() *inlineKeyboard {
	return keyboard(row(callbackButton("< Menu", Action{Kind: ActionMenu})))
}

// activeScreen renders one page of the user's appointments. page is clamped
// to the available pages.
func activeScreen(active []booking.ActiveAppointment, page int) screen {
	if len(active) == 0 {
		return screen{text: textNoActive, keyboard: menuOnly()}
	}

	pages := (len(active) + activePageSize - 1) / activePageSize
	page = max(0, min(page, pages-1))
	start := page * activePageSize
	end := min(start+activePageSize, len(active))

	var sb strings.Builder
	for _, a := range active[start:end] {
		fmt.Fprintf(&sb, "Date: *%s*\nTime: *%s*\nServices:\n",
			a.Date.Format("January, 02"),
			time.Date(2000, 1, 1, a.Hour, 0, 0, 0, time.UTC).Format("15:04"))
		for _, title := range a.ServiceTitles {
			fmt.Fprintf(&sb, "\n— *%s*", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, title))
		}
		sb.WriteString("\n\n")
	}

	rows := [][]inlineButton{}
	if pages > 1 {
		fmt.Fprintf(&sb, "Page %d/%d", page+1, pages)
		var nav []inlineButton
		if page > 0 {
			nav = append(nav, callbackButton("<", Action{Kind: ActionActiveNav, Direction: NavPrev, Page: page}))
		}
		if page < pages-1 {
			nav = append(nav, callbackButton(">", Action{Kind: ActionActiveNav, Direction: NavNext, Page: page}))
		}
		rows = append(rows, nav)
	}
	rows = append(rows, row(callbackButton("< Menu", Action{Kind: ActionMenu})))

	return screen{
		text:     strings.TrimRight(sb.String(), "\n"),
		markdown: true,
		keyboard: keyboard(rows...),
	}
}
