// Package notifytest provides an in-memory notify.Messenger for tests.
package notifytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/m3rciful/orderbot/internal/notify"
)

// Sent is a message posted or copied by the recorder.
type Sent struct {
	ID       int
	Thread   int
	Text     string
	Keyboard notify.Keyboard
	Markdown bool
	// CopyOf is the source message id of copies.
	CopyOf int
}

// Edit is a recorded edit.
type Edit struct {
	MessageID int
	Text      string
	Keyboard  notify.Keyboard
}

// Poll is a recorded poll.
type Poll struct {
	notify.PollRequest
	Ref notify.PollRef
}

// Recorder records every call. Setting FailOn makes the named operation
// ("post", "edit", "copy", "poll") fail once.
type Recorder struct {
	mu     sync.Mutex
	nextID int
	Sent   []Sent
	Edits  []Edit
	Polls  []Poll
	FailOn map[string]error
}

// New returns a recorder whose message ids start at 100.
func New() *Recorder {
	return &Recorder{nextID: 100, FailOn: map[string]error{}}
}

func (r *Recorder) failure(op string) error {
	if err, ok := r.FailOn[op]; ok {
		delete(r.FailOn, op)
		return notify.Wrap(op, err)
	}
	return nil
}

func (r *Recorder) id() int {
	r.nextID++
	return r.nextID
}

// Post implements notify.Messenger.
func (r *Recorder) Post(_ context.Context, msg notify.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("post"); err != nil {
		return 0, err
	}
	id := r.id()
	r.Sent = append(r.Sent, Sent{ID: id, Thread: msg.Thread, Text: msg.Text, Keyboard: msg.Keyboard, Markdown: msg.Markdown})
	return id, nil
}

// Edit implements notify.Messenger.
func (r *Recorder) Edit(_ context.Context, messageID int, text string, kb notify.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("edit"); err != nil {
		return err
	}
	r.Edits = append(r.Edits, Edit{MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

// Copy implements notify.Messenger. The copy carries the source's latest
// text.
func (r *Recorder) Copy(_ context.Context, req notify.CopyRequest) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("copy"); err != nil {
		return 0, err
	}
	id := r.id()
	text := ""
	for _, s := range r.Sent {
		if s.ID == req.MessageID {
			text = s.Text
		}
	}
	for _, e := range r.Edits {
		if e.MessageID == req.MessageID {
			text = e.Text
		}
	}
	r.Sent = append(r.Sent, Sent{ID: id, Thread: req.Thread, Text: text, Keyboard: req.Keyboard, CopyOf: req.MessageID})
	return id, nil
}

// Poll implements notify.Messenger.
func (r *Recorder) Poll(_ context.Context, req notify.PollRequest) (notify.PollRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("poll"); err != nil {
		return notify.PollRef{}, err
	}
	id := r.id()
	ref := notify.PollRef{MessageID: id, PollID: fmt.Sprintf("poll-%d", id)}
	r.Polls = append(r.Polls, Poll{PollRequest: req, Ref: ref})
	return ref, nil
}

// InThread returns the messages sent to thread in order.
func (r *Recorder) InThread(thread int) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.Sent {
		if s.Thread == thread {
			out = append(out, s)
		}
	}
	return out
}

// LastEdit returns the latest edit of messageID.
func (r *Recorder) LastEdit(messageID int) (Edit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Edits) - 1; i >= 0; i-- {
		if r.Edits[i].MessageID == messageID {
			return r.Edits[i], true
		}
	}
	return Edit{}, false
}
