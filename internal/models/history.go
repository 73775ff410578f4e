package models

import "strconv"

// ConversationHistory is the ordered sequence of Messages for one session.
// It enforces a bounded-growth policy (§3): when the estimated token count
// exceeds a configured ceiling, the oldest non-system messages are collapsed
// into a single synthetic summary message. The leading system message, if
// present, is never evicted.
type ConversationHistory struct {
	messages []*Message
	// TokenCeiling is the estimated-token budget that triggers summarization.
	// Zero disables the bounded-growth policy.
	TokenCeiling int
	// Estimate returns the estimated token count of a message. Defaults to a
	// 4-characters-per-token heuristic (matching common tokenizer behavior
	// closely enough for a budget trigger) when nil.
	Estimate func(*Message) int
	// Summarize collapses a run of evicted messages into replacement text.
	// Defaults, when nil, to a header naming the evicted count followed by
	// each message's role and the first 80 bytes of its text.
	Summarize func([]*Message) string
}

// NewConversationHistory constructs an empty history with the given token
// ceiling (0 disables summarization).
func NewConversationHistory(tokenCeiling int) *ConversationHistory {
	return &ConversationHistory{TokenCeiling: tokenCeiling}
}

// Append adds a message to the end of the history and then applies the
// bounded-growth policy.
func (h *ConversationHistory) Append(m *Message) {
	h.messages = append(h.messages, m)
	h.enforceBudget()
}

// Messages returns the current, possibly-summarized message slice. The
// returned slice must not be mutated by the caller.
func (h *ConversationHistory) Messages() []*Message {
	return h.messages
}

// Len returns the number of messages currently retained (post-summarization).
func (h *ConversationHistory) Len() int {
	return len(h.messages)
}

func (h *ConversationHistory) estimateTokens(m *Message) int {
	if h.Estimate != nil {
		return h.Estimate(m)
	}
	n := 0
	for _, b := range m.Blocks {
		n += len(b.Text) + len(b.Input) + len(b.ErrorText)
	}
	return n/4 + 1
}

func (h *ConversationHistory) summarize(evicted []*Message) string {
	if h.Summarize != nil {
		return h.Summarize(evicted)
	}
	out := "[summary of " + strconv.Itoa(len(evicted)) + " earlier message(s)]"
	for _, m := range evicted {
		t := m.Text()
		if t == "" {
			continue
		}
		if len(t) > 80 {
			t = t[:80]
		}
		out += " " + string(m.Role) + ": " + t
	}
	return out
}

// enforceBudget evicts the oldest non-system messages into one synthetic
// summary message once the estimated total exceeds TokenCeiling.
func (h *ConversationHistory) enforceBudget() {
	if h.TokenCeiling <= 0 {
		return
	}
	total := 0
	for _, m := range h.messages {
		total += h.estimateTokens(m)
	}
	if total <= h.TokenCeiling {
		return
	}

	// System message, if leading, is preserved verbatim.
	startIdx := 0
	var system *Message
	if len(h.messages) > 0 && h.messages[0].Role == RoleSystem {
		system = h.messages[0]
		startIdx = 1
	}

	// Evict every non-system message except the most recent one in a single
	// step (nothing to summarize for a 1-message tail); the rebuilt history is
	// not re-checked against the budget.
	keepFromEnd := 1
	evictEnd := len(h.messages) - keepFromEnd
	if evictEnd <= startIdx {
		return
	}

	evicted := make([]*Message, evictEnd-startIdx)
	copy(evicted, h.messages[startIdx:evictEnd])
	summaryText := h.summarize(evicted)
	summaryMsg := NewTextMessage(RoleSystem, summaryText)

	rebuilt := make([]*Message, 0, len(h.messages)-len(evicted)+2)
	if system != nil {
		rebuilt = append(rebuilt, system)
	}
	rebuilt = append(rebuilt, summaryMsg)
	rebuilt = append(rebuilt, h.messages[evictEnd:]...)
	h.messages = rebuilt
}
