/*
Package notify delivers operator-facing chat messages via the Telegram
Bot API.

The alert router is the only production caller: CRITICAL alerts go to
the on-call operator's DM and the site group chat, HIGH alerts to the
group chat only. Delivery is at-most-once; a failed send is logged and
dropped, never queued, because a stale page is worse than a missed one
when the next probe cycle will re-raise a real problem anyway.

ChatSender is the seam for tests and future transports (the interface
is one Send method, so a Slack or webhook sender slots in without
touching the router).

	sender := notify.NewTelegramSender(cfg.Chat.BotToken)
	err := sender.Send(ctx, cfg.Chat.GroupChatID, "⚠️ [VOLT] GPU hot\ntemp 84C")

Messages use Telegram HTML parse mode; callers are responsible for
escaping if they interpolate untrusted text.
*/
package notify
