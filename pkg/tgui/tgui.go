package tgui

import (
	tele "gopkg.in/telebot.v4"
)

// Inline builds an inline keyboard row by row.
type Inline struct {
	rows [][]tele.InlineButton
}

func NewInline() *Inline { return &Inline{} }

// Row appends one row of buttons; empty rows are skipped.
func (i *Inline) Row(btns ...tele.InlineButton) *Inline {
	if len(btns) > 0 {
		i.rows = append(i.rows, btns)
	}
	return i
}

func (i *Inline) Markup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: i.rows}
}

// Btn creates a callback button. data is sent verbatim; build it with
// Data or DataOrBare.
func Btn(text, data string) tele.InlineButton {
	return tele.InlineButton{Text: text, Data: data}
}
