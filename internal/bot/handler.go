package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"limbobot/internal/audit"
	"limbobot/internal/registry"
	"limbobot/internal/runtime/supervisor"
	"limbobot/internal/transport"
	logx "limbobot/pkg/logx"
)

// Sender is the slice of the chat transport the handler needs.
type Sender interface {
	SendText(ctx context.Context, to string, text string) error
}

const commandTimeout = 30 * time.Second

// Handler consumes inbound chat updates and serves the artist-facing
// commands. Each update is handled in its own supervised goroutine, so a
// slow send never blocks the update stream.
type Handler struct {
	reg    *registry.Registry
	sender Sender
	trail  audit.Store // nil when the audit trail is disabled
	log    logx.Logger

	adminMu sync.RWMutex
	adminID string

	probeDelay time.Duration
}

func NewHandler(reg *registry.Registry, sender Sender, trail audit.Store, adminID string, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{
		reg:        reg,
		sender:     sender,
		trail:      trail,
		adminID:    strings.TrimSpace(adminID),
		log:        log,
		probeDelay: defaultProbeDelay,
	}
}

// SetAdmin swaps the admin identity. Safe to call while Run is active;
// config hot reload uses this.
func (h *Handler) SetAdmin(id string) {
	h.adminMu.Lock()
	h.adminID = strings.TrimSpace(id)
	h.adminMu.Unlock()
}

func (h *Handler) admin() string {
	h.adminMu.RLock()
	defer h.adminMu.RUnlock()
	return h.adminID
}

// Run consumes updates until ctx is canceled or the channel closes. It
// drains in-flight command goroutines before returning.
func (h *Handler) Run(ctx context.Context, updates <-chan transport.Update) error {
	sup := supervisor.New(ctx, supervisor.WithLogger(h.log))
	defer func() {
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Stop(wctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			h.dispatch(sup, up)
		}
	}
}

func (h *Handler) dispatch(sup *supervisor.Supervisor, up transport.Update) {
	cmd := command(up.Text)
	if cmd == "" {
		return
	}
	sup.Go0("cmd"+cmd, func(ctx context.Context) {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()

		switch cmd {
		case "/start":
			h.handleStart(cctx, sup, up)
		case "/status":
			h.handleStatus(cctx, up)
		case "/list":
			h.handleList(cctx, up)
		}
	})
}

// command extracts the leading slash command, stripping a @BotName suffix.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}

func (h *Handler) handleStart(ctx context.Context, sup *supervisor.Supervisor, up transport.Update) {
	h.log.Info("start command",
		logx.String("username", up.Username),
		logx.String("chat_id", up.ChatID),
	)

	if strings.TrimSpace(up.Username) == "" {
		h.reply(ctx, up.ChatID, msgNoUsername)
		return
	}

	artist, _, err := h.reg.Register(up.Username, up.ChatID)
	if errors.Is(err, registry.ErrNotFound) {
		h.reply(ctx, up.ChatID, msgNotArtist(registry.CanonicalUsername(up.Username)))
		return
	}
	if err != nil {
		h.log.Warn("register failed", logx.String("username", up.Username), logx.Err(err))
		return
	}

	h.reply(ctx, up.ChatID, msgWelcome(artist))

	// Delayed test notification, detached from the command lifetime so a
	// finished /start doesn't cancel it. Failure is logged, never surfaced.
	chatID := up.ChatID
	sup.Go0("register.probe", func(pctx context.Context) {
		select {
		case <-pctx.Done():
			return
		case <-time.After(h.probeDelay):
		}
		sctx, cancel := context.WithTimeout(pctx, 10*time.Second)
		defer cancel()
		if err := h.sender.SendText(sctx, chatID, msgProbe); err != nil {
			h.log.Warn("test notification failed",
				logx.String("username", artist.Username),
				logx.Err(err),
			)
		}
	})
}

func (h *Handler) handleStatus(ctx context.Context, up transport.Update) {
	artist, ok := h.reg.FindByRecipientID(up.ChatID)
	if !ok {
		h.reply(ctx, up.ChatID, msgNotRegistered)
		return
	}
	h.reply(ctx, up.ChatID, msgStatus(artist))
}

// handleList is admin-only. Non-admin chats get no response at all, so the
// command's existence is not advertised.
func (h *Handler) handleList(ctx context.Context, up transport.Update) {
	admin := h.admin()
	if admin == "" || up.ChatID != admin {
		h.log.Debug("list command ignored", logx.String("chat_id", up.ChatID))
		return
	}

	artists := h.reg.List()
	registered, _ := h.reg.Counts()

	var recent []audit.Entry
	if h.trail != nil {
		var err error
		recent, err = h.trail.Recent(ctx, 5)
		if err != nil {
			h.log.Warn("audit lookup failed", logx.Err(err))
			recent = nil
		}
	}

	h.reply(ctx, up.ChatID, msgRoster(artists, registered, recent))
}

func (h *Handler) reply(ctx context.Context, chatID, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		h.log.Warn("reply failed", logx.String("chat_id", chatID), logx.Err(err))
	}
}
