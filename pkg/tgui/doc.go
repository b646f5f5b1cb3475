// Package tgui provides small Telegram UI helpers:
//   - Inline keyboard builders
//   - Callback data helpers ("action:payload", bounded by Telegram's 64-byte limit)
//   - Rune-safe truncation for previews
package tgui
