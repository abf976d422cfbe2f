package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"wheres-my-lunch/pkg/logger"
)

// Telegram adapts the bot API to the Sender interface and feeds inbound
// updates into the handler. Updates are processed one at a time, which
// gives every user a strictly sequential view of their own session.
type Telegram struct {
	api *tgbotapi.BotAPI
	log *logger.Logger
}

func NewTelegram(token string, log *logger.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	log.Info("startup", "telegram_connected", "Authorized as @"+api.Self.UserName)
	return &Telegram{api: api, log: log}, nil
}

// Run consumes long-polling updates until the context is cancelled.
func (t *Telegram) Run(ctx context.Context, h *Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("updates channel closed")
			}
			t.dispatch(ctx, h, update)
		}
	}
}

func (t *Telegram) dispatch(ctx context.Context, h *Handler, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		from := update.Message.From
		h.HandleText(ctx, TextMessage{
			UserID:    from.ID,
			Username:  from.UserName,
			FullName:  fullName(from),
			FirstName: from.FirstName,
			Text:      update.Message.Text,
		})
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		cb := update.CallbackQuery
		messageID := 0
		if cb.Message != nil {
			messageID = cb.Message.MessageID
		}
		h.HandleCallback(ctx, CallbackSignal{
			UserID:    cb.From.ID,
			MessageID: messageID,
			Token:     cb.Data,
		})
		// Stops the client-side spinner; one ack per pressed button.
		if _, err := t.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			t.log.Error("", "callback_ack_failed", "Failed to answer callback query", err)
		}
	}
}

func fullName(u *tgbotapi.User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (t *Telegram) Send(userID int64, reply Reply) error {
	msg := tgbotapi.NewMessage(userID, reply.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup := keyboardMarkup(reply.Keyboard); markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) Edit(userID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(userID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.api.Send(edit)
	return err
}

func (t *Telegram) SendDocument(userID int64, filePath, caption string) error {
	doc := tgbotapi.NewDocument(userID, tgbotapi.FilePath(filePath))
	doc.Caption = caption
	_, err := t.api.Send(doc)
	return err
}

// SendText lets the scheduler and the notification subscriber push
// plain notifications without building a Reply.
func (t *Telegram) SendText(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.api.Send(msg)
	return err
}

func keyboardMarkup(k Keyboard) interface{} {
	switch k {
	case KeyboardRemove:
		return tgbotapi.NewRemoveKeyboard(false)
	case KeyboardMain:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonNewOrder)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonMyOrders)),
		)
	case KeyboardMainAdmin:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonNewOrder)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonMyOrders)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonExport)),
		)
	case KeyboardConfirm:
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Да, всё верно", TokenConfirmYes)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Заполнить заново", TokenConfirmNo)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отменить заказ", TokenCancel)),
		)
	default:
		return nil
	}
}
