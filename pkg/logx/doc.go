// Package logx is relaybot's logging layer on zerolog.
//
// Console output is human readable with a short file:line caller, the
// optional file output is JSON, and warnings can be mirrored to a Telegram
// chat. Outputs and levels can be swapped at runtime with Service.Apply.
package logx
