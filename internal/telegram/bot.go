package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"ai-fitness-coach/internal/app"
	"ai-fitness-coach/internal/clipper"
	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/planner"
	"ai-fitness-coach/internal/shared"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	sessionTTL         = 30 * time.Minute
	contextBloatTokens = 4000
	usageReportDays    = 7
)

const helpText = `🏋️ *AI Fitness Coach*

/plan <goal> - plan your week (reuses the current plan when the goal is unchanged)
/plan force <goal> - always build a new plan
/day <1-7 or weekday> - talk about one day, e.g. "/day 5"
/done - stop talking about the selected day

Then just tell me what to change: "make it shorter", "something under 20 mins".
Send a link to clip a workout into the library.`

// Sender is the part of the Telegram API the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Coach is the application surface the bot drives.
type Coach interface {
	GeneratePlanForUser(ctx context.Context, userID, goal string, force bool) (*planner.WeeklyPlan, error)
	CurrentPlan(ctx context.Context, userID string) (*planner.WeeklyPlan, error)
	Chat(ctx context.Context, userID string, day int, message string) (*app.ChatReply, error)
	ClipURL(ctx context.Context, url string) (*clipper.ClipResult, error)
	IndexClip(ctx context.Context, res *clipper.ClipResult) error
	Usage(ctx context.Context, days int) (*app.UsageReport, error)
}

// Bot wraps the Telegram API and routes messages to the coach.
type Bot struct {
	api       Sender
	coach     Coach
	sessions  *SessionRepository
	log       *logger.Logger
	allowed   map[int64]bool
	adminID   int64
	dataPath  string
	ghostURL  string
	startedAt time.Time

	background sync.WaitGroup
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(cfg *config.Config, coach Coach, sessions *SessionRepository, dataPath string, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("authorized on telegram", "account", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("webhook set", "description", resp.Description)

	return newBot(api, coach, sessions, cfg, dataPath, log), nil
}

func newBot(api Sender, coach Coach, sessions *SessionRepository, cfg *config.Config, dataPath string, log *logger.Logger) *Bot {
	allowed := make(map[int64]bool, len(cfg.TelegramAllowedUserIDs))
	for _, id := range cfg.TelegramAllowedUserIDs {
		allowed[id] = true
	}
	return &Bot{
		api:       api,
		coach:     coach,
		sessions:  sessions,
		log:       log.With("service", "TelegramBot"),
		allowed:   allowed,
		adminID:   cfg.AdminTelegramID,
		dataPath:  dataPath,
		ghostURL:  strings.TrimRight(cfg.GhostURL, "/"),
		startedAt: time.Now(),
	}
}

// WebhookHandler receives Telegram updates. Messages are processed in the
// background so Telegram gets its 200 straight away.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(b.handleWebhook)
}

// Wait blocks until background work started by messages has finished.
func (b *Bot) Wait() {
	b.background.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn("error parsing update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed[msg.From.ID] {
		b.log.Warn("unauthorized access attempt", "user_id", msg.From.ID, "username", msg.From.UserName)
		return
	}

	b.goBackground(func() { b.processMessage(context.Background(), msg) })
}

func (b *Bot) goBackground(fn func()) {
	b.background.Add(1)
	go func() {
		defer b.background.Done()
		fn()
	}()
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	userID := strconv.FormatInt(msg.From.ID, 10)

	if msg.IsCommand() {
		args := strings.TrimSpace(msg.CommandArguments())
		switch msg.Command() {
		case "start", "help":
			b.reply(msg.Chat.ID, helpText)
		case "metrics":
			b.handleMetricsRequest(ctx, msg)
		case "plan":
			b.handlePlanRequest(ctx, msg.Chat.ID, userID, args)
		case "day":
			b.handleDaySelect(ctx, msg.Chat.ID, userID, args)
		case "done":
			b.handleDone(ctx, msg.Chat.ID, userID)
		default:
			b.reply(msg.Chat.ID, "Unknown command. Send /help to see what I can do.")
		}
		return
	}

	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleClipperRequest(ctx, msg.Chat.ID, text)
		return
	}

	b.handleChat(ctx, msg.Chat.ID, userID, text)
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if b.adminID == 0 || msg.From.ID != b.adminID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	report, err := b.coach.Usage(ctx, usageReportDays)
	if err != nil {
		b.log.Error("failed to load usage", "error", err)
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.reply(msg.Chat.ID, formatMetrics(report, metrics.GetSysHealth(b.dataPath, b.startedAt)))
}

func (b *Bot) handlePlanRequest(ctx context.Context, chatID int64, userID, args string) {
	force := false
	if first, rest, _ := strings.Cut(args, " "); strings.EqualFold(first, "force") {
		force = true
		args = strings.TrimSpace(rest)
	}

	sent, err := b.send(chatID, "🏃 *Thinking...*\n(Picking workouts and building your week)")
	if err != nil {
		return
	}

	b.log.Info("generating plan", "user_id", userID, "goal", args, "force", force)
	plan, err := b.coach.GeneratePlanForUser(ctx, userID, args, force)
	if err != nil {
		b.log.Error("plan request failed", "user_id", userID, "error", err)
		if plan == nil {
			b.edit(chatID, sent.MessageID, errorText("Error generating plan", err))
			return
		}
	}
	b.edit(chatID, sent.MessageID, formatPlanMarkdown(plan))
}

func (b *Bot) handleDaySelect(ctx context.Context, chatID int64, userID, args string) {
	day := parseDayRef(args)
	if day == 0 {
		b.reply(chatID, "Which day? Use a number from 1 (Monday) to 7 (Sunday), e.g. /day 5")
		return
	}

	plan, err := b.coach.CurrentPlan(ctx, userID)
	if errors.Is(err, app.ErrNoPlan) {
		b.reply(chatID, noPlanText)
		return
	}
	if err != nil {
		b.log.Error("failed to load plan", "user_id", userID, "error", err)
		b.reply(chatID, errorText("Error loading plan", err))
		return
	}
	pd, ok := plan.Day(day)
	if !ok {
		b.reply(chatID, "I couldn't find that day in your plan.")
		return
	}

	data := SessionContextData{PlanID: plan.ID, Day: day}
	if _, err := b.sessions.Create(ctx, userID, sessionTypeAdjust, stateAwaitingDay, data, sessionTTL); err != nil {
		b.log.Error("failed to open session", "user_id", userID, "error", err)
		b.reply(chatID, errorText("Error opening session", err))
		return
	}
	b.reply(chatID, formatDayLine(*pd)+"\n\nWhat would you like to change?")
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, userID string) {
	s, err := b.sessions.GetActive(ctx, userID)
	if err == nil && s != nil {
		if err := b.sessions.Delete(ctx, s.ID); err != nil {
			b.log.Warn("failed to close session", "user_id", userID, "error", err)
		}
	}
	b.reply(chatID, "👍 Done. Send /day to pick another day.")
}

// handleChat sends a free-text message about one day to the coach. The day
// comes from the message itself or the open session.
func (b *Bot) handleChat(ctx context.Context, chatID int64, userID, text string) {
	day := parseDayRef(text)
	session, err := b.sessions.GetActive(ctx, userID)
	if err != nil {
		b.log.Warn("failed to load session", "user_id", userID, "error", err)
	}
	if day == 0 && session != nil {
		if data, err := session.GetContextData(); err == nil {
			day = data.Day
		}
	}
	if day == 0 {
		b.reply(chatID, "Which day do you mean? Pick one with /day, e.g. /day 5")
		return
	}

	sent, err := b.send(chatID, "🤔 *Thinking...*")
	if err != nil {
		return
	}

	reply, err := b.coach.Chat(ctx, userID, day, text)
	if errors.Is(err, app.ErrNoPlan) {
		b.edit(chatID, sent.MessageID, noPlanText)
		return
	}
	if err != nil {
		b.log.Error("chat failed", "user_id", userID, "day", day, "error", err)
		b.edit(chatID, sent.MessageID, errorText("Error adjusting plan", err))
		return
	}

	if session != nil {
		if err := b.sessions.Touch(ctx, session.ID, sessionTTL); err != nil {
			b.log.Warn("failed to extend session", "user_id", userID, "error", err)
		}
	}
	b.edit(chatID, sent.MessageID, formatChatReply(reply, day))
}

func (b *Bot) handleClipperRequest(ctx context.Context, chatID int64, url string) {
	sent, err := b.send(chatID, "✂️ *Clipping workout...*\n(Extracting and saving to your blog)")
	if err != nil {
		return
	}

	res, err := b.coach.ClipURL(ctx, url)
	if err != nil {
		b.log.Error("error clipping workout", "url", url, "error", err)
		b.edit(chatID, sent.MessageID, errorText("Error clipping workout", err))
		return
	}

	b.edit(chatID, sent.MessageID, fmt.Sprintf("✅ *Workout Saved!*\n\n*Title:* %s\n*URL:* %s/%s",
		escape(res.Item.Name()), b.ghostURL, res.Post.ID))

	b.goBackground(func() { b.indexClip(res) })
}

// indexClip makes a clipped post searchable in the background.
func (b *Bot) indexClip(res *clipper.ClipResult) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := b.coach.IndexClip(ctx, res); err != nil {
		b.log.Error("failed to index clipped workout", "post_id", res.Post.ID, "error", err)
		return
	}
	b.log.Info("clipped workout is now searchable", "post_id", res.Post.ID, "title", res.Item.Title)
}

// CheckContextBloat alerts the admin when one agent call used a large prompt.
func (b *Bot) CheckContextBloat(meta shared.AgentMeta) {
	if meta.Usage.PromptTokens <= contextBloatTokens {
		return
	}
	b.sendAdminAlert(fmt.Sprintf("⚠️ *Context Bloat Alert*\nAgent: %s\nModel: %s\nPrompt Tokens: %d",
		escape(meta.AgentName), escape(meta.Usage.Model), meta.Usage.PromptTokens))
}

func (b *Bot) sendAdminAlert(text string) {
	if b.adminID == 0 {
		return
	}
	b.reply(b.adminID, text)
}

func (b *Bot) send(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("failed to send message", "chat_id", chatID, "error", err)
	}
	return sent, err
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = b.send(chatID, text)
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("failed to edit message", "chat_id", chatID, "error", err)
	}
}

const noPlanText = "You don't have a plan yet. Send /plan <goal> to create one."

func errorText(title string, err error) string {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *%s:*\n```\n%v\n```", title, safeErr)
}

var dayNumberRe = regexp.MustCompile(`(?i)\bday\s*([1-7])\b`)

// parseDayRef finds "day N", a bare number or a weekday name in s. Zero means none.
func parseDayRef(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 7 {
			return n
		}
		return 0
	}
	if m := dayNumberRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	lower := strings.ToLower(s)
	for n := 1; n <= 7; n++ {
		name := strings.ToLower(time.Weekday(n % 7).String())
		if strings.Contains(lower, name) {
			return n
		}
	}
	return 0
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
