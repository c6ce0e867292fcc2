package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramClient is the subset of *tgbotapi.BotAPI the bot uses.
type TelegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewTelegramClient connects to the Bot API at apiURL and routes the
// library's own log lines through logger.
func NewTelegramClient(token, apiURL string, logger zerolog.Logger) (*tgbotapi.BotAPI, error) {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	l := logger.With().Str("component", "tgbotapi").Logger()
	if err := tgbotapi.SetLogger(&l); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, strings.TrimRight(apiURL, "/")+"/bot%s/%s")
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	return api, nil
}

// The library's InlineKeyboardButton predates Web App buttons, so keyboards
// are built from these types and serialized as reply_markup directly.
type inlineButton struct {
	Text         string      `json:"text"`
	CallbackData string      `json:"callback_data,omitempty"`
	WebApp       *webAppInfo `json:"web_app,omitempty"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func callbackButton(text string, a Action) inlineButton {
	return inlineButton{Text: text, CallbackData: a.Data()}
}

func keyboard(rows ...[]inlineButton) *inlineKeyboard {
	return &inlineKeyboard{InlineKeyboard: rows}
}

func row(buttons ...inlineButton) []inlineButton {
	return buttons
}

// screen is one rendered bot message.
type screen struct {
	text     string
	markdown bool
	keyboard *inlineKeyboard
}

func (b *Bot) send(chatID int64, s screen) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, s.text)
	if s.markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if s.keyboard != nil {
		msg.ReplyMarkup = s.keyboard
	}
	return b.tg.Send(msg)
}

func (b *Bot) edit(chatID int64, messageID int, s screen) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_id", messageID)
	params["text"] = s.text
	if s.markdown {
		params["parse_mode"] = tgbotapi.ModeMarkdown
	}
	if s.keyboard != nil {
		if err := params.AddInterface("reply_markup", s.keyboard); err != nil {
			return err
		}
	}
	_, err := b.tg.MakeRequest("editMessageText", params)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// deliver edits the message behind a callback, or sends a new message for
// anything else.
func (b *Bot) deliver(ev Event, s screen) error {
	if ev.Kind == EventCallback && ev.MessageID != 0 {
		return b.edit(ev.ChatID, ev.MessageID, s)
	}
	_, err := b.send(ev.ChatID, s)
	return err
}
