// Package notify posts order notifications into the forum threads of the
// venue's group chat.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Threads holds the topic ids of the group chat.
type Threads struct {
	Kitchen    int `yaml:"kitchen" envconfig:"KITCHEN_TOPIC_ID"`
	Bar        int `yaml:"bar" envconfig:"BAR_TOPIC_ID"`
	Manager    int `yaml:"manager" envconfig:"MANAGER_TOPIC_ID"`
	Dispatcher int `yaml:"dispatcher" envconfig:"DISPATCHER_TOPIC_ID"`
	Processing int `yaml:"processing" envconfig:"PROCESSING_TOPIC_ID"`
	Completed  int `yaml:"completed" envconfig:"COMPLETED_TOPIC_ID"`
	Admin      int `yaml:"admin" envconfig:"ADMIN_TOPIC_ID"`
}

// Button is an inline button whose callback carries Action and Payload.
type Button struct {
	Text    string
	Action  string
	Payload string
}

// Keyboard is a grid of inline buttons. A nil keyboard removes buttons when
// editing.
type Keyboard [][]Button

// Row builds a single-row keyboard.
func Row(buttons ...Button) Keyboard {
	return Keyboard{buttons}
}

// Message is a post into a thread of the group chat.
type Message struct {
	Thread   int
	Text     string
	Keyboard Keyboard
	Markdown bool
}

// CopyRequest copies an existing message into a thread. A zero FromChat
// means the group chat itself.
type CopyRequest struct {
	FromChat  int64
	MessageID int
	Thread    int
	Keyboard  Keyboard
}

// PollRequest describes a regular poll.
type PollRequest struct {
	Thread          int
	Question        string
	Options         []string
	MultipleAnswers bool
	Anonymous       bool
}

// PollRef identifies a posted poll.
type PollRef struct {
	MessageID int
	PollID    string
}

// Messenger is the subset of the messaging platform used by order flows.
type Messenger interface {
	Post(ctx context.Context, msg Message) (int, error)
	Edit(ctx context.Context, messageID int, text string, kb Keyboard) error
	Copy(ctx context.Context, req CopyRequest) (int, error)
	Poll(ctx context.Context, req PollRequest) (PollRef, error)
}

// StampLayout renders timestamps as dd.mm.yy HH:MM.
const StampLayout = "02.01.06 15:04"

// Stamp formats t for order messages.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// ThreadLink returns the t.me link that opens thread in the supergroup
// chatID.
func ThreadLink(chatID int64, thread int) string {
	id := strings.TrimPrefix(strconv.FormatInt(chatID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(id, "-"), thread)
}
