package notification

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type of a push signal
type Kind string

const (
	// KindRefresh tells viewers to re-fetch the whole bill
	KindRefresh Kind = "REFRESH"
	// KindReaction carries a cosmetic emoji; it never touches the ledger
	KindReaction Kind = "REACTION"
)

// ErrMalformedSignal is returned by Decode for anything it does not understand
var ErrMalformedSignal = errors.New("malformed signal")

// Signal is one message on a bill's push channel.
//
// Wire form is the SSE data line: "REFRESH" or "REACTION:{user_id}:{emoji}".
type Signal struct {
	Kind   Kind
	UserID int64
	Emoji  string
}

// Refresh builds a refresh signal
func Refresh() Signal {
	return Signal{Kind: KindRefresh}
}

// Reaction builds a reaction signal
func Reaction(userID int64, emoji string) Signal {
	return Signal{Kind: KindReaction, UserID: userID, Emoji: emoji}
}

// Encode renders the wire form
func (s Signal) Encode() string {
	if s.Kind == KindReaction {
		return fmt.Sprintf("%s:%d:%s", KindReaction, s.UserID, s.Emoji)
	}
	return string(KindRefresh)
}

// Decode parses the wire form. Emoji may contain ':' themselves, so only
// the first two separators count.
func Decode(data string) (Signal, error) {
	data = strings.TrimSpace(data)

	if data == string(KindRefresh) {
		return Refresh(), nil
	}

	rest, ok := strings.CutPrefix(data, string(KindReaction)+":")
	if !ok {
		return Signal{}, fmt.Errorf("%w: %q", ErrMalformedSignal, data)
	}

	rawID, emoji, ok := strings.Cut(rest, ":")
	if !ok || emoji == "" {
		return Signal{}, fmt.Errorf("%w: %q", ErrMalformedSignal, data)
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: bad user id %q", ErrMalformedSignal, rawID)
	}

	return Reaction(userID, emoji), nil
}

// ReactionRequest is the body of POST /bills/{id}/reactions
// UserID is only read when the request carries no identity header.
type ReactionRequest struct {
	UserID int64  `json:"user_id"`
	Emoji  string `json:"emoji"`
}
