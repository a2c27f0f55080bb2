/*
Package alert routes site alerts to Telegram and Mission Control by
severity.

The router is the single choke point for everything the agent wants a
human (or Mission Control) to see. Components construct a types.Alert
and call Route; the router decides who hears about it and when.

# Routing Matrix

	Severity  │ Operator DM │ Group chat │ Mission Control │ Cooldown
	──────────┼─────────────┼────────────┼─────────────────┼─────────
	CRITICAL  │     ✓       │     ✓      │       ✓         │ bypassed
	HIGH      │             │     ✓      │       ✓         │ applies
	MEDIUM    │             │            │       ✓         │ applies
	LOW       │             │            │  batch summary  │ applies

# Cooldown

Repeats of the same (source agent, title) pair inside the cooldown
window (default 600s) are dropped, not queued. A GPU that stays hot
re-raises the same title every probe cycle; one page per window is the
contract. CRITICAL alerts bypass the window entirely and never consume
a slot in it.

# LOW Batching

LOW alerts accumulate in memory. The first one arms a one-shot flush
timer (default 1800s); later arrivals never push the flush out. On
fire, the whole batch becomes a single MEDIUM summary from source
NEXUS titled "Batch Summary (<n> alerts)", sent to Mission Control
only. An empty batch flushes to nothing and the timer re-arms on the
next LOW.

# Delivery Semantics

At-most-once. Transport errors are logged and the alert is considered
dispatched: the cooldown slot stays consumed and nothing is retried.
The monitors re-raise real conditions on their next cycle, which is
the retry mechanism that actually matters.

# Usage

	router := alert.NewRouter(mcClient, telegramSender, alert.Config{
		DMChatID:    cfg.Chat.DMChatID,
		GroupChatID: cfg.Chat.GroupChatID,
		Cooldown:    time.Duration(cfg.Alerts.CooldownS) * time.Second,
		BatchFlush:  time.Duration(cfg.Alerts.BatchFlushS) * time.Second,
	})

	router.Route(&types.Alert{
		Severity:    types.SeverityHigh,
		SourceAgent: "VOLT",
		Title:       "GPU hot",
		Message:     "pc1-rtx3090 at 84C",
	})

Call FlushBatch on shutdown so pending LOW alerts are not lost.
*/
package alert
