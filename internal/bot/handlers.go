// Package bot holds the Telegram handlers: menus, order buttons, poll
// answers, mark mode, custom requests, inline search and catalog admin.
package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/core/logger"
	tg "github.com/m3rciful/orderbot/core/telegram"
	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"
	"github.com/m3rciful/orderbot/core/telegram/middleware"
	"github.com/m3rciful/orderbot/core/telegram/router"
	"github.com/m3rciful/orderbot/core/telegram/state"
	"github.com/m3rciful/orderbot/core/telegram/ui"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/marks"
	"github.com/m3rciful/orderbot/internal/notify"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

// Conversation states.
const (
	StateCustomRequest state.State = "custom_request"
	StateAdminJSON     state.State = "admin_json"
	StateAdminCSV      state.State = "admin_csv"
	StateAdminItem     state.State = "admin_item"
)

// FileFetcher downloads uploaded documents. *tele.Bot implements it.
type FileFetcher interface {
	File(file *tele.File) (io.ReadCloser, error)
}

// Options wires the handlers to the services.
type Options struct {
	Catalog   *catalog.FileStore
	Pipeline  *pipeline.Service
	Marks     *marks.Service
	Messenger notify.Messenger
	Threads   notify.Threads
	FSM       state.Manager
	Files     FileFetcher

	AdminID          int64
	KitchenThreshold int
	// GroupChatID is the supergroup holding the threads; lane order buttons
	// link into it.
	GroupChatID int64
	// Subcategories overrides the sub-category lists derived from the
	// catalog, per lane.
	Subcategories map[catalog.Lane][]string
	// BotUsername is shown in the search hint.
	BotUsername string
}

// Handlers implements every bot route.
type Handlers struct {
	opts  Options
	admin middleware.AdminOptions
	reg   *tg.Registry
}

var _ ui.FallbackProvider = (*Handlers)(nil)

// New builds the handlers.
func New(opts Options) *Handlers {
	if opts.KitchenThreshold <= 0 {
		opts.KitchenThreshold = catalog.DefaultKitchenThreshold
	}
	if opts.FSM == nil {
		opts.FSM = state.NewMemoryManager()
	}
	if opts.BotUsername == "" {
		opts.BotUsername = "botname"
	}
	h := &Handlers{opts: opts}
	h.admin = middleware.AdminOptions{AdminID: opts.AdminID, OnReject: h.denied}
	return h
}

// FSM returns the conversation state manager.
func (h *Handlers) FSM() state.Manager { return h.opts.FSM }

// Register adds commands, callbacks and conversation states to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	h.reg = reg
	commands := map[string]tg.Command{
		"/start":      {Handler: h.start, Description: "Open the main menu", Aliases: []string{BtnBackToMain}},
		"/help":       {Handler: h.help, Description: "How ordering works"},
		"/kitchen":    {Handler: h.lane(catalog.LaneKitchen), Description: "Kitchen sub-categories", Aliases: []string{BtnKitchen}},
		"/bar":        {Handler: h.lane(catalog.LaneBar), Description: "Bar sub-categories", Aliases: []string{BtnBar}},
		"/categories": {Handler: h.categories, Description: "Browse all categories", Aliases: []string{BtnCategories, BtnGoBack}},
		"/search":     {Handler: h.search, Description: "Search items inline", Aliases: []string{BtnSearch}},
		"/today":      {Handler: h.list(catalog.ListToday), Description: "Today's list", Aliases: []string{BtnTodayList}},
		"/customlist": {Handler: h.list(catalog.ListCustom), Description: "Custom list", Aliases: []string{BtnCustomList}},
		"/custom":     {Handler: h.customStart, Description: "Request an item that is not in the catalog", Aliases: []string{BtnCustom}},
		"/markmode":   {Handler: h.markModeOn, Description: "Collect items into one bulk order", Aliases: []string{BtnMarkMode}},
		"/stopmark":   {Handler: h.markModeOff, Description: "Leave mark mode", Aliases: []string{BtnStopMarkMode}},
		"/placeorder": {Handler: h.placeOrder, Description: "Send the marked items", Aliases: []string{BtnPlaceOrder}, Hidden: true},
		"/cancel":     {Handler: h.cancelConversation, Description: "Abort the current request", Hidden: true},
		"/admin":      {Handler: h.adminMenu, Description: "Catalog administration", AdminOnly: true},
	}
	for name, cmd := range commands {
		reg.RegisterCommand(name, cmd)
	}

	adminOnly := middleware.AdminOnlyMiddleware(h.admin)
	marking := middleware.State[bool](markState{h.opts.Marks.Book()}, true, h.markModeInactive)
	callbacks := map[string]tele.HandlerFunc{
		pipeline.ActionAdd:            h.addToOrder,
		pipeline.ActionQtyAdd:         h.increaseQuantity,
		pipeline.ActionApprove:        h.approve,
		pipeline.ActionCancel:         h.cancelItem,
		pipeline.ActionDispatch:       h.dispatch,
		pipeline.ActionRejectDispatch: h.rejectDispatch,
		pipeline.ActionCRM:            h.crm,
		actionShowItems:               h.showItems,
		actionBackToCategories:        h.backToCategories,
		actionMarkItem:                marking(h.markItem),
		actionUnmarkItem:              marking(h.unmarkItem),
		actionSendOrder:               h.sendOrder,
		actionApproveCustom:           h.resolveCustom(textCustomApproved, textCustomOK),
		actionRejectCustom:            h.resolveCustom(textCustomRejected, textCustomNo),
		actionAdminShow:               adminOnly(h.adminShow),
		actionAdminCSV:                adminOnly(h.adminExportCSV),
		actionAdminSave:               adminOnly(h.adminAwait(StateAdminJSON, textAdminPasteJSON)),
		actionAdminImport:             adminOnly(h.adminAwait(StateAdminCSV, textAdminPasteCSV)),
		actionAdminItem:               adminOnly(h.adminAwait(StateAdminItem, textAdminPasteItem)),
		actionAdminRestore:            adminOnly(h.adminRestore),
		actionAdminSuppliers:          adminOnly(h.adminSuppliers),
		actionAdminSupplierOrder:      adminOnly(h.adminSupplierOrder),
		actionAdminItemMenu:           adminOnly(h.adminItemMenu),
		actionAdminItemRemove:         adminOnly(h.adminItemRemove),
		actionAdminItemAssign:         adminOnly(h.adminItemAssign),
		actionAdminAssign:             adminOnly(h.adminAssign),
	}
	for key, cb := range callbacks {
		if err := reg.RegisterCallback(key, cb); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	reg.SetTextFallback(h.subCategory)

	fsm := h.opts.FSM
	fsm.Handle(StateCustomRequest, h.customReceive)
	fsm.Handle(StateAdminJSON, h.adminReceiveJSON)
	fsm.Handle(StateAdminCSV, h.adminReceiveCSV)
	fsm.Handle(StateAdminItem, h.adminReceiveItem)
	return nil
}

// Routes binds the registry and the event handlers to bot endpoints.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       h.opts.AdminID,
		OnAdminReject: h.denied,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{NotFound: h.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(h.opts.FSM, reg, router.TextOptions{
		AdminID:         h.opts.AdminID,
		OnAdminReject:   h.denied,
		UnknownText:     h.UnknownText(),
		UnknownDocument: h.UnknownDocument(),
	})...)
	routes = append(routes,
		router.EventRoute(tele.OnPollAnswer, "poll_answer", h.pollAnswer),
		router.EventRoute(tele.OnQuery, "inline_query", h.inlineQuery),
	)
	return routes
}

// UnknownText answers unmatched text in private chats only; group threads
// carry staff conversation the bot must not reply to.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		if !private(c) {
			return nil
		}
		return tghelpers.SendText(c, textUnknown)
	}
}

// UnknownDocument answers documents sent outside an admin import.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		if !private(c) {
			return nil
		}
		return tghelpers.SendText(c, textUnknownDoc)
	}
}

// UnknownCallback answers buttons no handler is registered for.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.Answer(c, textUnknownAction)
	}
}

// escape lets menu buttons pressed during a conversation leave it: text
// matching a command alias clears the state and runs that command.
func (h *Handlers) escape(c tele.Context) (bool, error) {
	text := c.Text()
	if h.reg == nil || text == "" {
		return false, nil
	}
	_, cmd, ok := h.reg.LookupCommand(text)
	if !ok {
		return false, nil
	}
	h.opts.FSM.Clear(tghelpers.SenderID(c))
	if cmd.AdminOnly && !h.admin.IsAdmin(c) {
		return true, h.denied(c)
	}
	return true, cmd.Handler(c)
}

func (h *Handlers) denied(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Answer(c, textAccessDenied)
	}
	return tghelpers.SendText(c, textAccessDenied)
}

func private(c tele.Context) bool {
	chat := c.Chat()
	return chat == nil || chat.Type == tele.ChatPrivate
}

// opContext is the per-update logging context with a deadline for outbound calls.
func opContext(c tele.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(tghelpers.BuildContext(c), 30*time.Second)
}

func requester(c tele.Context) string {
	return tghelpers.DisplayName(c.Sender())
}

// callbackMessageID is the id of the message carrying the pressed button.
func callbackMessageID(c tele.Context) int {
	if cb := c.Callback(); cb != nil && cb.Message != nil {
		return cb.Message.ID
	}
	return 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func logFailure(c tele.Context, event string, err error, attrs ...slog.Attr) {
	logger.Warn(tghelpers.BuildContext(c), logger.ComponentTG, event,
		append([]slog.Attr{slog.String("status", "fail"), logger.Err(err)}, attrs...)...)
}
