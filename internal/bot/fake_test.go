package bot

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/salon-appointment-bot/internal/booking"
)

// fakeTelegram records everything the bot sends.
type fakeTelegram struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	edits    []tgbotapi.Params
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{nextID: 1000, updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if endpoint == "editMessageText" {
		f.edits = append(f.edits, params)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeTelegram) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTelegram) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTelegram) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (f *fakeTelegram) lastEdit(t *testing.T) tgbotapi.Params {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1]
}

func (f *fakeTelegram) preCheckoutAnswers() []tgbotapi.PreCheckoutConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PreCheckoutConfig
	for _, c := range f.requests {
		if a, ok := c.(tgbotapi.PreCheckoutConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeTelegram) callbackAnswers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.requests {
		if _, ok := c.(tgbotapi.CallbackConfig); ok {
			n++
		}
	}
	return n
}

func editKeyboard(t *testing.T, p tgbotapi.Params) inlineKeyboard {
	t.Helper()
	var kb inlineKeyboard
	require.NoError(t, json.Unmarshal([]byte(p["reply_markup"]), &kb))
	return kb
}

func callbackData(kb *inlineKeyboard) []string {
	var out []string
	for _, r := range kb.InlineKeyboard {
		for _, b := range r {
			if b.CallbackData != "" {
				out = append(out, b.CallbackData)
			}
		}
	}
	return out
}

type passthroughLocker struct{}

func (passthroughLocker) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// 2024-06-01 09:00 UTC
var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	bot  *Bot
	tg   *fakeTelegram
	repo *booking.MemoryRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := booking.NewMemoryRepository([]booking.SalonService{
		{ID: 1, Title: "Haircut", Price: 30},
		{ID: 2, Title: "Manicure", Price: 25},
		{ID: 3, Title: "Pedicure", Price: 35},
	})
	svc := booking.NewService(repo, passthroughLocker{}, booking.Options{
		Now:    func() time.Time { return testNow },
		Logger: zerolog.Nop(),
	})
	tg := newFakeTelegram()
	b, err := New(Deps{
		Telegram: tg,
		Ledger:   svc,
		Settings: Settings{
			WebAppURL:   "https://salon.example/bot",
			Hours:       booking.DefaultHours,
			Address:     "Narrows Rd S, Staten Island, NY, US",
			Latitude:    40.607083,
			Longitude:   -74.087041,
			Phone:       "+11111111111",
			ContactName: "BeautyBloomSalonBot",
			StickerID:   "sticker-id",
		},
		Logger:        zerolog.Nop(),
		MaxConcurrent: 4,
	})
	require.NoError(t, err)
	return &harness{bot: b, tg: tg, repo: repo}
}

const (
	testUser = int64(42)
	testChat = int64(42)
)

func commandUpdate(command string, messageID int) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func callbackUpdate(data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: testUser},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: testChat},
		},
	}}
}

func preCheckoutUpdate(userID int64, payload string) tgbotapi.Update {
	return tgbotapi.Update{PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{
		ID:             "pcq-1",
		From:           &tgbotapi.User{ID: userID},
		Currency:       "USD",
		TotalAmount:    5500,
		InvoicePayload: payload,
	}}
}

func paymentUpdate(payload string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testChat},
		SuccessfulPayment: &tgbotapi.SuccessfulPayment{
			Currency:       "USD",
			TotalAmount:    5500,
			InvoicePayload: payload,
		},
	}}
}
