// Package bot is the conversational front end: it routes each message to a
// command, an in-progress flow or the natural-language path and renders
// the reply text.
package bot

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shunichi-ikebuchi/paylog/pkg/engine"
	"github.com/shunichi-ikebuchi/paylog/pkg/interpreter"
	"github.com/shunichi-ikebuchi/paylog/pkg/prefs"
)

// replyUnavailable is sent when the ledger or preference store fails.
const replyUnavailable = "⚠️ Sorry, I couldn't reach your records right now. Nothing was changed. Please try again in a moment."

// Bot answers chat messages. It is safe for concurrent use; messages of
// one user are handled one at a time.
type Bot struct {
	engine *engine.Engine
	interp *interpreter.Interpreter
	store  prefs.Store
	now    func() time.Time

	mu    sync.Mutex
	users map[string]*user
}

type user struct {
	mu      sync.Mutex
	id      string
	session Session
	prefs   *prefs.Manager
}

// New creates a Bot.
func New(eng *engine.Engine, interp *interpreter.Interpreter, store prefs.Store) *Bot {
	return &Bot{
		engine: eng,
		interp: interp,
		store:  store,
		now:    time.Now,
		users:  make(map[string]*user),
	}
}

// WithClock replaces the clock used for dates and report windows. The
// engine keeps its own clock.
func (b *Bot) WithClock(now func() time.Time) *Bot {
	b.now = now
	return b
}

// Session returns a copy of the user's conversation state.
func (b *Bot) Session(userID string) Session {
	b.mu.Lock()
	u, ok := b.users[userID]
	b.mu.Unlock()
	if !ok {
		return Session{}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.session
}

// Handle answers one message from userID. Store failures are logged and
// answered with an apology; the user's flow is reset.
func (b *Bot) Handle(ctx context.Context, userID, text string) string {
	u, err := b.user(ctx, userID)
	if err != nil {
		slog.Error("Failed to load preferences", "user_id", userID, "error", err)
		return replyUnavailable
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	reply, err := b.dispatch(ctx, u, strings.TrimSpace(text))
	if err != nil {
		slog.Error("Failed to handle message",
			"user_id", userID,
			"flow", u.session.Flow.String(),
			"state", u.session.State.String(),
			"error", err)
		u.session.reset()
		return replyUnavailable
	}
	return reply
}

func (b *Bot) user(ctx context.Context, userID string) (*user, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if u, ok := b.users[userID]; ok {
		return u, nil
	}

	m, err := prefs.LoadWithClock(ctx, b.store, userID, b.now)
	if err != nil {
		return nil, err
	}
	u := &user{id: userID, prefs: m}
	b.users[userID] = u
	return u, nil
}

var aliasPattern = regexp.MustCompile(`^set alias (\w+) for (.+)$`)

func (b *Bot) dispatch(ctx context.Context, u *user, text string) (string, error) {
	if text == "" {
		return replyNotUnderstood, nil
	}

	if m := aliasPattern.FindStringSubmatch(strings.ToLower(text)); m != nil {
		if err := u.prefs.AddAlias(ctx, m[1], strings.TrimSpace(m[2])); err != nil {
			return "", err
		}
		return "✅ Alias set: '" + m[1] + "' → '" + strings.TrimSpace(m[2]) + "'", nil
	}

	if name, args, ok := parseCommand(text); ok {
		// A command always leaves the current flow.
		u.session.reset()
		return b.command(ctx, u, name, args)
	}

	if u.session.Active() {
		return b.step(ctx, u, text)
	}
	return b.natural(ctx, u, text)
}

// parseCommand reads "/name args..." or a menu button label.
func parseCommand(text string) (string, []string, bool) {
	if line, ok := menu[text]; ok {
		text = "/" + line
	}
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}

	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	return name, fields[1:], true
}

// menu maps reply keyboard labels to command lines.
var menu = map[string]string{
	"💰 Total Stack":  "balance total",
	"👛 Wallet":       "balance wallet",
	"🔄 Transfer":     "transfer",
	"🤝 Lending":      "lending",
	"📊 Reports":      "reports",
	"💡 Insights":     "insights",
	"📋 Summary":      "summary",
	"🏥 Health Score": "health",
	"⚙️ Settings":    "settings",
	"🔄 Undo Last":    "undo",
	"⚡ Quick Add":    "quick",
	"❓ Ask AI":       "ask",
	"📝 Batch Entry":  "batch",
	"🎯 My Goals":     "goals",
}

// MenuLabels returns the reply keyboard rows in display order.
func MenuLabels() [][]string {
	return [][]string{
		{"💰 Total Stack", "👛 Wallet"},
		{"🔄 Transfer", "🤝 Lending"},
		{"📊 Reports", "💡 Insights"},
		{"📋 Summary", "🏥 Health Score"},
		{"⚙️ Settings", "🔄 Undo Last"},
		{"⚡ Quick Add", "❓ Ask AI"},
		{"📝 Batch Entry", "🎯 My Goals"},
	}
}
