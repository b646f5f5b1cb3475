// Package relay implements the moderation pipeline: inbound text is staged in
// a review chat with approve/reject buttons, and approved text is broadcast to
// every destination chat.
//
// All state (staging chat, destinations, pending entries) is owned by a
// Service; handlers are its methods. Only the operator may configure the
// relay or decide staged messages.
package relay
