package relay

import (
	tele "gopkg.in/telebot.v4"

	"relaybot/pkg/tgui"
)

// Callback actions on staged renderings.
const (
	ActionApprove = "approve"
	ActionAllow   = "allow" // accepted as a synonym of approve
	ActionReject  = "reject"
)

// decisionKeyboard renders the [Allow | Reject] buttons. The approve button
// carries the text when it fits Telegram's callback_data limit.
func decisionKeyboard(text string) *tele.ReplyMarkup {
	return tgui.NewInline().Row(
		tgui.Btn("✅ Allow", tgui.DataOrBare(ActionApprove, text)),
		tgui.Btn("❌ Reject", ActionReject),
	).Markup()
}
