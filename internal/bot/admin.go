package bot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"
	"github.com/m3rciful/orderbot/core/telegram/keyboard"
	"github.com/m3rciful/orderbot/core/telegram/state"
	"github.com/m3rciful/orderbot/internal/catalog"
)

const (
	actionAdminShow    = "admin_show"
	actionAdminCSV     = "admin_csv"
	actionAdminSave    = "admin_save"
	actionAdminImport  = "admin_import"
	actionAdminItem    = "admin_item"
	actionAdminRestore = "admin_restore"

	actionAdminSuppliers     = "admin_suppliers"
	actionAdminSupplierOrder = "admin_supplier_order"
	actionAdminItemMenu      = "admin_item_menu"
	actionAdminItemRemove    = "admin_item_remove"
	actionAdminItemAssign    = "admin_item_assign"
	actionAdminAssign        = "admin_assign"
)

// Suppliers offered ahead of the catalog ones when reassigning an item.
var houseSuppliers = []string{"Kali", "Alternative"}

const (
	// inlineLimit is the longest file shown as a message; bigger files are
	// sent as documents.
	inlineLimit = 3500
	// maxUpload bounds downloaded admin documents.
	maxUpload = 5 << 20
)

var csvEchoHeader = regexp.MustCompile(`(?i)^\s*CSV \w+ \(edit and send back\):\s*`)

func adminKeyboard() *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(catalog.Kinds)+2)
	for _, k := range catalog.Kinds {
		name := capitalize(string(k))
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "📄 " + name + " JSON", Unique: actionAdminShow, Data: string(k)},
			{Text: "📊 " + name + " CSV", Unique: actionAdminCSV, Data: string(k)},
			{Text: "♻️ Restore " + name, Unique: actionAdminRestore, Data: string(k)},
		})
	}
	rows = append(rows, []keyboard.InlineBtn{
		{Text: "💾 Save JSON", Unique: actionAdminSave},
		{Text: "📥 Import CSV", Unique: actionAdminImport},
		{Text: "✏️ Edit Item", Unique: actionAdminItem},
	}, []keyboard.InlineBtn{
		{Text: "🏷 Supplier Orders", Unique: actionAdminSuppliers},
	})
	return keyboard.InlineButtonsRows(rows...)
}

func (h *Handlers) adminMenu(c tele.Context) error {
	return tghelpers.SendWithMarkup(c, textAdminMenu, adminKeyboard())
}

func payloadKind(c tele.Context) (catalog.Kind, bool) {
	return catalog.ParseKind(strings.TrimSpace(callbacks.CallbackPayload(c)))
}

// sendFile shows data inline when it is short, otherwise as a document.
func sendFile(c tele.Context, data []byte, name, caption string, inline func() error) error {
	if len(data) <= inlineLimit {
		return inline()
	}
	doc := &tele.Document{File: tele.FromReader(bytes.NewReader(data)), FileName: name, Caption: caption}
	return c.Send(doc)
}

func (h *Handlers) adminShow(c tele.Context) error {
	kind, ok := payloadKind(c)
	if !ok {
		return tghelpers.Answer(c, textUnknownAction)
	}
	raw, err := h.opts.Catalog.Raw(kind)
	if err != nil {
		return err
	}
	return sendFile(c, raw, string(kind)+".json", fmt.Sprintf(textAdminJSONDoc, kind), func() error {
		return tghelpers.SendMD(c, fmt.Sprintf(textAdminJSON, kind, raw))
	})
}

func (h *Handlers) adminExportCSV(c tele.Context) error {
	kind, ok := payloadKind(c)
	if !ok {
		return tghelpers.Answer(c, textUnknownAction)
	}
	data, err := h.opts.Catalog.ExportCSV(kind)
	if err != nil {
		return err
	}
	name := capitalize(string(kind))
	return sendFile(c, data, string(kind)+".csv", fmt.Sprintf(textAdminCSVDoc, name), func() error {
		return tghelpers.SendText(c, fmt.Sprintf(textAdminCSV, name, data))
	})
}

// adminAwait puts the admin into st and shows the input prompt.
func (h *Handlers) adminAwait(st state.State, prompt string) tele.HandlerFunc {
	return func(c tele.Context) error {
		h.opts.FSM.SetState(tghelpers.SenderID(c), st)
		return tghelpers.SendText(c, prompt)
	}
}

func (h *Handlers) adminRestore(c tele.Context) error {
	kind, ok := payloadKind(c)
	if !ok {
		return tghelpers.Answer(c, textUnknownAction)
	}
	ctx, cancel := opContext(c)
	defer cancel()
	src, err := h.opts.Catalog.RestoreLatest(ctx, kind)
	switch {
	case errors.Is(err, catalog.ErrNoBackup):
		return tghelpers.SendText(c, fmt.Sprintf(textNoBackup, kind))
	case err != nil:
		logFailure(c, "admin.restore", err, slog.String("kind", string(kind)))
		return tghelpers.SendText(c, fmt.Sprintf(textAdminFailed, err))
	}
	return tghelpers.SendText(c, fmt.Sprintf(textRestored, capitalize(string(kind)), src))
}

// adminSuppliers lists the enabled suppliers whose orders can be edited.
func (h *Handlers) adminSuppliers(c tele.Context) error {
	suppliers, err := h.opts.Catalog.Suppliers(catalog.EnabledOnly())
	if err != nil {
		return err
	}
	if len(suppliers) == 0 {
		return tghelpers.SendText(c, textNoSuppliers)
	}
	btns := make([]keyboard.InlineBtn, 0, len(suppliers))
	for _, sup := range suppliers {
		btns = append(btns, keyboard.InlineBtn{Text: sup.Name, Unique: actionAdminSupplierOrder, Data: sup.Name})
	}
	return tghelpers.SendWithMarkup(c, textPickSupplier, keyboard.InlineColumn(btns))
}

// adminSupplierOrder lists the items ordered from the pressed supplier.
func (h *Handlers) adminSupplierOrder(c tele.Context) error {
	name := strings.TrimSpace(callbacks.CallbackPayload(c))
	if name == "" {
		return tghelpers.Answer(c, textUnknownAction)
	}
	items, err := h.opts.Catalog.Items(catalog.BySupplier(name))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return tghelpers.SendText(c, fmt.Sprintf(textNoSupplierItems, name))
	}
	btns := make([]keyboard.InlineBtn, 0, len(items))
	for _, it := range items {
		btns = append(btns, keyboard.InlineBtn{Text: it.Name, Unique: actionAdminItemMenu, Data: it.SKU})
	}
	return tghelpers.SendWithMarkup(c, textPickItem, keyboard.InlineColumn(btns))
}

func (h *Handlers) adminItemMenu(c tele.Context) error {
	sku := strings.TrimSpace(callbacks.CallbackPayload(c))
	if sku == "" {
		return tghelpers.Answer(c, textUnknownAction)
	}
	kb := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "Remove", Unique: actionAdminItemRemove, Data: sku},
		{Text: "Assign To", Unique: actionAdminItemAssign, Data: sku},
	})
	return tghelpers.SendWithMarkup(c, textChooseAction, kb)
}

func (h *Handlers) adminItemRemove(c tele.Context) error {
	sku := strings.TrimSpace(callbacks.CallbackPayload(c))
	ctx, cancel := opContext(c)
	defer cancel()
	return h.itemEdited(c, "admin.remove", sku, h.opts.Catalog.RemoveItem(ctx, sku), textItemRemoved)
}

// adminItemAssign offers the house suppliers followed by the enabled ones.
func (h *Handlers) adminItemAssign(c tele.Context) error {
	sku := strings.TrimSpace(callbacks.CallbackPayload(c))
	if sku == "" {
		return tghelpers.Answer(c, textUnknownAction)
	}
	suppliers, err := h.opts.Catalog.Suppliers(catalog.EnabledOnly())
	if err != nil {
		return err
	}
	btns := make([]keyboard.InlineBtn, 0, len(houseSuppliers)+len(suppliers))
	for _, name := range houseSuppliers {
		btns = append(btns, keyboard.InlineBtn{Text: name, Unique: actionAdminAssign, Data: sku + callbacks.Separator + name})
	}
	for _, sup := range suppliers {
		btns = append(btns, keyboard.InlineBtn{Text: sup.Name, Unique: actionAdminAssign, Data: sku + callbacks.Separator + sup.Name})
	}
	return tghelpers.SendWithMarkup(c, textAssignTo, keyboard.InlineColumn(btns))
}

// adminAssign handles payloads of the form "<sku>|<supplier>".
func (h *Handlers) adminAssign(c tele.Context) error {
	sku, supplier, ok := strings.Cut(callbacks.CallbackPayload(c), callbacks.Separator)
	if !ok || sku == "" || strings.TrimSpace(supplier) == "" {
		return tghelpers.Answer(c, textUnknownAction)
	}
	supplier = strings.TrimSpace(supplier)
	ctx, cancel := opContext(c)
	defer cancel()
	return h.itemEdited(c, "admin.assign", sku, h.opts.Catalog.AssignSupplier(ctx, sku, supplier),
		fmt.Sprintf(textItemAssigned, supplier))
}

func (h *Handlers) itemEdited(c tele.Context, event, sku string, err error, done string) error {
	switch {
	case errors.Is(err, catalog.ErrUnknownItem):
		return tghelpers.SendText(c, textAdminItemMissing)
	case err != nil:
		logFailure(c, event, err, slog.String("sku", sku))
		return tghelpers.SendText(c, fmt.Sprintf(textAdminFailed, err))
	}
	return tghelpers.SendText(c, done)
}

// upload returns the text of the message or the contents of its document.
func (h *Handlers) upload(c tele.Context) ([]byte, error) {
	msg := c.Message()
	if msg == nil {
		return nil, nil
	}
	if msg.Document == nil {
		return []byte(c.Text()), nil
	}
	if h.opts.Files == nil {
		return nil, errors.New("bot: document download not configured")
	}
	rc, err := h.opts.Files.File(&msg.Document.File)
	if err != nil {
		return nil, fmt.Errorf("bot: download %s: %w", msg.Document.FileName, err)
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxUpload))
}

// adminInput reads the admin's payload and runs save on it. Rejected
// payloads keep the state so the admin can send a corrected version.
func (h *Handlers) adminInput(c tele.Context, save func([]byte) (string, error), rejected func(*catalog.PayloadError) string) error {
	if handled, err := h.escape(c); handled {
		return err
	}
	user := tghelpers.SenderID(c)
	data, err := h.upload(c)
	if err != nil {
		logFailure(c, "admin.upload", err)
		return tghelpers.SendText(c, fmt.Sprintf(textAdminFailed, err))
	}
	reply, err := save(data)
	var perr *catalog.PayloadError
	switch {
	case errors.As(err, &perr):
		logFailure(c, "admin.rejected", err, slog.String("reason", perr.Reason))
		return tghelpers.SendText(c, rejected(perr))
	case err != nil:
		h.opts.FSM.Clear(user)
		logFailure(c, "admin.save", err)
		return tghelpers.SendText(c, fmt.Sprintf(textAdminFailed, err))
	}
	h.opts.FSM.Clear(user)
	return tghelpers.SendText(c, reply)
}

func (h *Handlers) adminReceiveJSON(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	return h.adminInput(c, func(data []byte) (string, error) {
		kind, n, err := h.opts.Catalog.SaveRaw(ctx, data)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(textAdminSaved, capitalize(string(kind)), n), nil
	}, func(perr *catalog.PayloadError) string {
		if perr.Reason == catalog.ReasonUnknownShape {
			return textAdminUnknown
		}
		return textAdminInvalid
	})
}

func (h *Handlers) adminReceiveCSV(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	return h.adminInput(c, func(data []byte) (string, error) {
		data = csvEchoHeader.ReplaceAll(data, nil)
		n, err := h.opts.Catalog.ImportItemsCSV(ctx, data)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(textAdminCSVSaved, n), nil
	}, func(*catalog.PayloadError) string {
		return textAdminCSVInvalid
	})
}

func (h *Handlers) adminReceiveItem(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	return h.adminInput(c, func(data []byte) (string, error) {
		created, err := h.opts.Catalog.UpsertItem(ctx, data)
		if err != nil {
			return "", err
		}
		if created {
			return textItemCreated, nil
		}
		return textItemUpdated, nil
	}, func(*catalog.PayloadError) string {
		return textItemInvalid
	})
}
