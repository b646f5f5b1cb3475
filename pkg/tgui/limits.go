package tgui

import "errors"

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
// It bounds the full string, "action:payload" included.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")
