package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/notify"
	"github.com/dc1-ops/nexus/pkg/types"
)

// SelfSource is the source agent name for alerts the router raises on
// its own behalf (batch summaries)
const SelfSource = "NEXUS"

// MCPoster delivers alerts to Mission Control
type MCPoster interface {
	PostAlert(ctx context.Context, level types.Severity, message string, metadata map[string]string) error
}

// Config holds router tunables
type Config struct {
	// DMChatID is the on-call operator's direct chat (CRITICAL only)
	DMChatID string

	// GroupChatID is the site group chat (HIGH and CRITICAL)
	GroupChatID string

	// Cooldown is the per-(source, title) suppression window
	// (default: 600 seconds)
	Cooldown time.Duration

	// BatchFlush is how long LOW alerts accumulate before one summary
	// (default: 1800 seconds)
	BatchFlush time.Duration
}

// Router fans alerts out to Telegram and Mission Control by severity:
//
//	CRITICAL  DM + group + MC, bypasses the cooldown window
//	HIGH      group + MC
//	MEDIUM    MC only
//	LOW       held, one MEDIUM batch summary per flush window
//
// Transports are at-most-once: a failed send is logged and the alert
// still counts as dispatched for cooldown purposes.
type Router struct {
	mc     MCPoster
	chat   notify.ChatSender
	config Config
	logger zerolog.Logger

	mu         sync.Mutex
	rateCache  map[string]time.Time
	batch      []*types.Alert
	batchTimer *time.Timer
}

// NewRouter creates a new alert router
func NewRouter(mcPoster MCPoster, chat notify.ChatSender, config Config) *Router {
	if config.Cooldown <= 0 {
		config.Cooldown = 600 * time.Second
	}
	if config.BatchFlush <= 0 {
		config.BatchFlush = 1800 * time.Second
	}

	return &Router{
		mc:        mcPoster,
		chat:      chat,
		config:    config,
		logger:    log.WithComponent("alert"),
		rateCache: make(map[string]time.Time),
	}
}

// Route dispatches one alert according to the severity matrix. Missing
// ID and timestamp are filled in.
func (r *Router) Route(a *types.Alert) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	r.logger.Info().
		Str("severity", string(a.Severity)).
		Str("source", a.SourceAgent).
		Str("title", a.Title).
		Msg("Alert")

	if a.Severity == types.SeverityCritical {
		// Critical pages immediately and never touches the cooldown
		// cache, so a following critical still pages too.
		r.sendChat(a, r.config.DMChatID)
		r.sendChat(a, r.config.GroupChatID)
		r.sendMC(a)
		metrics.AlertsDispatched.WithLabelValues(string(a.Severity)).Inc()
		return
	}

	if r.rateLimited(a) {
		r.logger.Info().
			Str("source", a.SourceAgent).
			Str("title", a.Title).
			Msg("Alert dropped by cooldown")
		metrics.AlertsDropped.Inc()
		return
	}

	switch a.Severity {
	case types.SeverityLow:
		r.enqueueBatch(a)
	case types.SeverityMedium:
		r.sendMC(a)
		metrics.AlertsDispatched.WithLabelValues(string(a.Severity)).Inc()
	case types.SeverityHigh:
		r.sendChat(a, r.config.GroupChatID)
		r.sendMC(a)
		metrics.AlertsDispatched.WithLabelValues(string(a.Severity)).Inc()
	default:
		r.logger.Warn().
			Str("severity", string(a.Severity)).
			Msg("Unknown severity, routing to MC only")
		r.sendMC(a)
	}
}

// FlushBatch dispatches one MEDIUM summary for the pending LOW batch.
// The flush timer calls it; shutdown may call it early. An empty batch
// flushes to nothing.
func (r *Router) FlushBatch() {
	r.mu.Lock()
	if r.batchTimer != nil {
		r.batchTimer.Stop()
		r.batchTimer = nil
	}
	batch := r.batch
	r.batch = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Batched alerts (%d):\n", len(batch))
	for _, a := range batch {
		fmt.Fprintf(&b, "• [%s] %s: %s\n", strings.ToUpper(string(a.Severity)), a.SourceAgent, a.Title)
	}

	summary := &types.Alert{
		ID:          uuid.New().String(),
		Severity:    types.SeverityMedium,
		SourceAgent: SelfSource,
		Title:       fmt.Sprintf("Batch Summary (%d alerts)", len(batch)),
		Message:     b.String(),
		Timestamp:   time.Now().UTC(),
	}

	r.logger.Info().Int("batched", len(batch)).Msg("Flushing LOW alert batch")
	r.sendMC(summary)
	metrics.AlertsDispatched.WithLabelValues(string(types.SeverityMedium)).Inc()
}

// rateLimited reports whether the alert falls inside the cooldown
// window for its (source, title) key, and opens a new window if not
func (r *Router) rateLimited(a *types.Alert) bool {
	key := a.SourceAgent + "|" + a.Title

	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.rateCache[key]; ok && time.Since(last) < r.config.Cooldown {
		return true
	}
	r.rateCache[key] = time.Now()
	return false
}

func (r *Router) enqueueBatch(a *types.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.batch = append(r.batch, a)
	metrics.AlertsBatched.Inc()

	// One-shot: later arrivals never push the flush out.
	if r.batchTimer == nil {
		r.batchTimer = time.AfterFunc(r.config.BatchFlush, r.FlushBatch)
	}
}

func (r *Router) sendChat(a *types.Alert, chatID string) {
	var text string
	if a.Severity == types.SeverityCritical {
		text = fmt.Sprintf("🔴 CRITICAL — [%s] %s\n%s", a.SourceAgent, a.Title, a.Message)
	} else {
		text = fmt.Sprintf("⚠️ [%s] %s\n%s", a.SourceAgent, a.Title, a.Message)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.chat.Send(ctx, chatID, text); err != nil {
		r.logger.Error().Err(err).Str("chat_id", chatID).Msg("Failed to send Telegram alert")
	}
}

func (r *Router) sendMC(a *types.Alert) {
	message := fmt.Sprintf("[%s] %s: %s", a.SourceAgent, a.Title, a.Message)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.mc.PostAlert(ctx, a.Severity, message, a.Metadata); err != nil {
		r.logger.Error().Err(err).Msg("Failed to send MC alert")
	}
}
