package bot

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/orderbot/core/telegram"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/marks"
	"github.com/m3rciful/orderbot/internal/notify"
	"github.com/m3rciful/orderbot/internal/notify/notifytest"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

const (
	adminID = int64(42)
	staffID = int64(7)
)

var threads = notify.Threads{Kitchen: 2, Bar: 3, Manager: 4, Dispatcher: 5, Processing: 6, Completed: 7, Admin: 8}

const itemsJSON = `[
  {"item_sku": "SKU123", "item_name": "Tomatoes", "category_id": 20, "category_name": "Vegetables", "sub_category": "veggies", "default_supplier": "fresh farms", "default_quantity": "1", "measure_unit": "kg"},
  {"item_sku": "SKU124", "item_name": "Basil", "category_id": 20, "category_name": "Vegetables", "sub_category": "veggies", "default_supplier": "Green Co"},
  {"item_sku": "B1", "item_name": "Lime", "category_id": 30001, "category_name": "Fruits", "sub_category": "fruits"}
]`

const categoriesJSON = `[
  {"category_id": 20, "category_name": "Vegetables", "parent_category": "kitchen"},
  {"category_id": 21, "category_name": "Dairy", "parent_category": "kitchen"},
  {"category_id": 30001, "category_name": "Fruits", "parent_category": "bar"}
]`

// sent is one outgoing call made through the context.
type sent struct {
	What any
	Opts []any
}

// fakeContext implements the parts of tele.Context the handlers use.
type fakeContext struct {
	tele.Context

	sender   *tele.User
	chat     *tele.Chat
	message  *tele.Message
	callback *tele.Callback
	query    *tele.Query
	poll     *tele.PollAnswer
	store    map[string]any

	sends     []sent
	edits     []sent
	responses []*tele.CallbackResponse
	answers   []*tele.QueryResponse
	editErr   error
}

func newContext(user int64) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: user, Username: map[int64]string{adminID: "boss", staffID: "alice"}[user]},
		chat:   &tele.Chat{ID: user, Type: tele.ChatPrivate},
		store:  map[string]any{},
	}
}

func textContext(user int64, text string) *fakeContext {
	c := newContext(user)
	c.message = &tele.Message{ID: 55, Text: text, Chat: c.chat, Sender: c.sender}
	return c
}

func callbackContext(user int64, unique, data string, messageID int) *fakeContext {
	c := newContext(user)
	c.message = &tele.Message{ID: messageID, Chat: c.chat}
	c.callback = &tele.Callback{ID: "cb", Sender: c.sender, Message: c.message, Data: "\f" + unique + "|" + data}
	return c
}

func (c *fakeContext) Sender() *tele.User           { return c.sender }
func (c *fakeContext) Chat() *tele.Chat             { return c.chat }
func (c *fakeContext) Message() *tele.Message       { return c.message }
func (c *fakeContext) Callback() *tele.Callback     { return c.callback }
func (c *fakeContext) Query() *tele.Query           { return c.query }
func (c *fakeContext) PollAnswer() *tele.PollAnswer { return c.poll }
func (c *fakeContext) Update() tele.Update          { return tele.Update{ID: 1} }
func (c *fakeContext) Get(key string) any           { return c.store[key] }
func (c *fakeContext) Set(key string, v any)        { c.store[key] = v }

func (c *fakeContext) Text() string {
	if c.message == nil {
		return ""
	}
	return c.message.Text
}

func (c *fakeContext) Send(what any, opts ...any) error {
	c.sends = append(c.sends, sent{What: what, Opts: opts})
	return nil
}

func (c *fakeContext) Edit(what any, opts ...any) error {
	if c.editErr != nil {
		return c.editErr
	}
	c.edits = append(c.edits, sent{What: what, Opts: opts})
	return nil
}

func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	c.responses = append(c.responses, resp...)
	return nil
}

func (c *fakeContext) Answer(resp *tele.QueryResponse) error {
	c.answers = append(c.answers, resp)
	return nil
}

// lastText returns the text of the latest Send.
func (c *fakeContext) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, c.sends)
	s, ok := c.sends[len(c.sends)-1].What.(string)
	require.True(t, ok, "last send is %T", c.sends[len(c.sends)-1].What)
	return s
}

// lastMarkup returns the reply markup of the latest Send.
func (c *fakeContext) lastMarkup(t *testing.T) *tele.ReplyMarkup {
	t.Helper()
	require.NotEmpty(t, c.sends)
	for _, o := range c.sends[len(c.sends)-1].Opts {
		if so, ok := o.(*tele.SendOptions); ok && so.ReplyMarkup != nil {
			return so.ReplyMarkup
		}
	}
	t.Fatalf("last send carries no markup")
	return nil
}

func (c *fakeContext) response(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, c.responses)
	return c.responses[len(c.responses)-1].Text
}

type fakeFiles map[string]string

func (f fakeFiles) File(file *tele.File) (io.ReadCloser, error) {
	body, ok := f[file.FileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

type fixture struct {
	h     *Handlers
	reg   *tg.Registry
	rec   *notifytest.Recorder
	store *catalog.FileStore
	files fakeFiles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"items.json":      itemsJSON,
		"categories.json": categoriesJSON,
		"suppliers.json":  `[{"supplier": "Fresh Farms"}]`,
		"todaylist.csv":   "Tomatoes,2\nBasil,1\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	clock := func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	store := catalog.NewFileStore(dir, catalog.WithClock(clock))
	rec := notifytest.New()
	files := fakeFiles{}

	h := New(Options{
		Catalog:     store,
		Pipeline:    pipeline.NewService(pipeline.Options{Catalog: store, Messenger: rec, Threads: threads, Clock: clock}),
		Marks:       marks.NewService(marks.Options{Suppliers: store, Messenger: rec, Threads: threads, Clock: clock}),
		Messenger:   rec,
		Threads:     threads,
		Files:       files,
		AdminID:     adminID,
		GroupChatID: -1001234567890,
		BotUsername: "kalibot",
	})
	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))
	return &fixture{h: h, reg: reg, rec: rec, store: store, files: files}
}

// press runs the registered callback for unique.
func (f *fixture) press(t *testing.T, c *fakeContext) error {
	t.Helper()
	key, _, _ := strings.Cut(strings.TrimPrefix(c.callback.Data, "\f"), "|")
	h, ok := f.reg.GetCallback(key)
	require.True(t, ok, "callback %q not registered", key)
	return h(c)
}

// say routes text the way the text route does: active conversations
// first, then commands and aliases, then the fallback.
func (f *fixture) say(t *testing.T, c *fakeContext) error {
	t.Helper()
	if f.h.FSM().InProgress(c.sender.ID) {
		return f.h.FSM().ManagerHandler(c)
	}
	if _, cmd, ok := f.reg.LookupCommand(c.Text()); ok {
		return cmd.Handler(c)
	}
	return f.reg.TextFallback()(c)
}
