package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gridquiz/internal/quiz"
	"gridquiz/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const downloadTimeout = 30 * time.Second

// botAPI is the part of tgbotapi.BotAPI the bot uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ botAPI = (*tgbotapi.BotAPI)(nil)

// Bot plays the grid quiz over Telegram. Each chat is its own session.
type Bot struct {
	api            botAPI
	sessionService *service.SessionService
	quizService    *service.QuizService
	imageService   *service.ImageService
	httpClient     *http.Client
	debug          bool
}

// NewBot connects to the Bot API with the given token
func NewBot(token string, sessionService *service.SessionService, quizService *service.QuizService, imageService *service.ImageService, debug bool) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = debug
	log.Printf("Authorised on account: %s", api.Self.UserName)

	return newBot(api, sessionService, quizService, imageService, debug), nil
}

func newBot(api botAPI, sessionService *service.SessionService, quizService *service.QuizService, imageService *service.ImageService, debug bool) *Bot {
	return &Bot{
		api:            api,
		sessionService: sessionService,
		quizService:    quizService,
		imageService:   imageService,
		httpClient:     &http.Client{Timeout: downloadTimeout},
		debug:          debug,
	}
}

// Start handles updates one at a time until ctx is cancelled
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

func sessionID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

// session makes sure the chat's session exists and returns its ID
func (b *Bot) session(chatID int64) (string, error) {
	id := sessionID(chatID)
	if _, err := b.sessionService.EnsureNamed(id); err != nil {
		return "", err
	}
	return id, nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	id, err := b.session(chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "quiz":
			b.sendMenu(chatID, id, "")
		case "size":
			b.handleSize(chatID, id, msg.CommandArguments())
		case "stats":
			b.sendStats(chatID, id)
		case "reset":
			b.handleReset(chatID, id)
		default:
			b.sendMessage(chatID, msgUnknownCommand)
		}
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, chatID, id, msg.Photo[len(msg.Photo)-1])
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.sendMessage(chatID, msgUnknownCommand)
		return
	}
	if _, err := strconv.Atoi(text); err != nil {
		b.sendMessage(chatID, msgUnknownCommand)
		return
	}
	b.handleGuess(chatID, id, text)
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
	if callback.Message == nil {
		return
	}

	chatID := callback.Message.Chat.ID
	id, err := b.session(chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	data := callback.Data
	switch {
	case data == callbackVisualize:
		b.handleVisualize(chatID, id)
	case data == callbackReset:
		b.handleReset(chatID, id)
	case strings.HasPrefix(data, callbackGlyph):
		b.choose(chatID, id, quiz.ModeGlyph, strings.TrimPrefix(data, callbackGlyph))
	case strings.HasPrefix(data, callbackSample):
		b.choose(chatID, id, quiz.ModeSampleImage, strings.TrimPrefix(data, callbackSample))
	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// pendingInput starts a configure request from the selection the chat already has
func (b *Bot) pendingInput(id string) (service.ConfigureInput, error) {
	state, err := b.quizService.State(id)
	if err != nil {
		return service.ConfigureInput{}, err
	}
	p := state.Pending
	return service.ConfigureInput{
		Rows:    p.Rows,
		Cols:    p.Cols,
		Mode:    string(p.Mode),
		Choice:  p.Asset.Choice,
		ImageID: p.Asset.ImageID,
	}, nil
}

func (b *Bot) handleSize(chatID int64, id, args string) {
	rows, cols, err := parseSize(args)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	in, err := b.pendingInput(id)
	if err == nil {
		in.Rows, in.Cols = rows, cols
		_, err = b.quizService.Configure(id, in)
	}
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMenu(chatID, id, fmt.Sprintf(msgSizeSet, rows, cols))
}

func (b *Bot) choose(chatID int64, id string, mode quiz.DisplayMode, choice string) {
	in, err := b.pendingInput(id)
	if err == nil {
		in.Mode, in.Choice, in.ImageID = string(mode), choice, ""
		_, err = b.quizService.Configure(id, in)
	}
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.handleVisualize(chatID, id)
}

func (b *Bot) handlePhoto(ctx context.Context, chatID int64, id string, photo tgbotapi.PhotoSize) {
	link, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		b.sendError(chatID, fmt.Errorf("failed to get photo link: %w", err))
		return
	}

	img, err := b.download(ctx, id, link)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	in, err := b.pendingInput(id)
	if err == nil {
		in.Mode, in.Choice, in.ImageID = string(quiz.ModeUploadedImage), "", img
		_, err = b.quizService.Configure(id, in)
	}
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMenu(chatID, id, msgPhotoSaved)
}

// download fetches a Telegram file and stores it as the session's upload
func (b *Bot) download(ctx context.Context, id, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download photo: status %d", resp.StatusCode)
	}

	img, err := b.imageService.Store(id, "telegram.jpg", resp.Body)
	if err != nil {
		return "", err
	}
	return img.ID, nil
}

func (b *Bot) handleVisualize(chatID int64, id string) {
	state, err := b.quizService.Visualize(id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendGrid(chatID, id, state)
}

func (b *Bot) handleGuess(chatID int64, id, text string) {
	guess, err := strconv.Atoi(text)
	if err == nil {
		var result quiz.Result
		result, _, err = b.quizService.SubmitGuess(id, guess)
		if err == nil {
			b.sendResult(chatID, result)
			return
		}
	}
	b.sendError(chatID, err)
}

func (b *Bot) handleReset(chatID int64, id string) {
	if _, err := b.quizService.Reset(id); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMenu(chatID, id, msgResetDone)
}

func (b *Bot) sendMenu(chatID int64, id, notice string) {
	state, err := b.quizService.State(id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, menuText(state.Pending, notice))
	msg.ReplyMarkup = menuKeyboard(b.quizService.Catalog())
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending menu: %v", err)
	}
}

// sendGrid sends the committed grid: text for glyphs, the sample photo with a
// text grid of its fallback, or one composite picture for an upload
func (b *Bot) sendGrid(chatID int64, id string, state *quiz.State) {
	caption := fmt.Sprintf(msgGridCaption, state.Rows, state.Cols)

	switch state.Mode {
	case quiz.ModeGlyph:
		b.sendMessage(chatID, caption+"\n\n"+textGrid(state.Rows, state.Cols, state.Asset.Glyph))

	case quiz.ModeSampleImage:
		if !sendablePhoto(state.Asset.ImageURL) {
			b.sendMessage(chatID, caption+"\n\n"+textGrid(state.Rows, state.Cols, state.Asset.Glyph))
			break
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(state.Asset.ImageURL))
		photo.Caption = caption
		if _, err := b.api.Send(photo); err != nil {
			log.Printf("Error sending sample photo: %v", err)
		}
		b.sendMessage(chatID, textGrid(state.Rows, state.Cols, state.Asset.Glyph))

	case quiz.ModeUploadedImage:
		if state.Asset.ImageID == "" {
			b.sendMessage(chatID, caption+"\n"+msgNoUpload+"\n\n"+textGrid(state.Rows, state.Cols, placeholderSymbol))
			return
		}
		composite, err := b.imageService.Composite(id, state.Asset.ImageID, state.Rows, state.Cols)
		if err != nil {
			b.sendError(chatID, err)
			return
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "grid.png", Bytes: composite})
		photo.Caption = caption
		if _, err := b.api.Send(photo); err != nil {
			log.Printf("Error sending composite: %v", err)
		}
	}

	if b.debug {
		log.Printf("[DEBUG] Sent %s grid %dx%d to chat %d", state.Mode, state.Rows, state.Cols, chatID)
	}
}

func (b *Bot) sendResult(chatID int64, result quiz.Result) {
	text := fmt.Sprintf(msgIncorrect, result.Guess, result.Answer)
	if result.Correct() {
		text = fmt.Sprintf(msgCorrect, result.Answer)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 다시 보기", callbackVisualize),
			tgbotapi.NewInlineKeyboardButtonData("🔙 처음부터", callbackReset),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending result: %v", err)
	}
}

func (b *Bot) sendStats(chatID int64, id string) {
	stats, err := b.quizService.Stats(id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(msgStats, stats.TotalAttempts, stats.CorrectAttempts, stats.Accuracy()))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// sendError tells the chat what went wrong, or logs and apologises for
// errors that are not the user's
func (b *Bot) sendError(chatID int64, err error) {
	text, ok := errorMessage(err)
	if !ok {
		log.Printf("Error handling update for chat %d: %v", chatID, err)
		text = msgTryLater
	} else if b.debug {
		log.Printf("[DEBUG] Rejected input from chat %d: %v", chatID, err)
	}
	b.sendMessage(chatID, text)
}
