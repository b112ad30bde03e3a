package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"
	"github.com/m3rciful/orderbot/core/telegram/keyboard"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/notify"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

const (
	actionShowItems        = "show_items"
	actionBackToCategories = "go_back_to_categories"
)

var laneOrderLabel = regexp.MustCompile(`^(Kitch|Bar) Order \(\d+\)$`)

// mainKeyboard is the main reply keyboard. Its lane order buttons carry the
// number of orders submitted for each lane.
func (h *Handlers) mainKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{BtnKitchen, BtnBar},
		[]string{BtnMarkMode},
		[]string{BtnTodayList, BtnCustomList},
		[]string{BtnCategories, BtnSearch, BtnCustom},
		[]string{
			fmt.Sprintf(btnKitchenOrders, h.opts.Pipeline.Added(catalog.LaneKitchen)),
			fmt.Sprintf(btnBarOrders, h.opts.Pipeline.Added(catalog.LaneBar)),
		},
	)
}

// laneLink answers a lane order button with a link to that lane's thread.
func (h *Handlers) laneLink(c tele.Context, prefix string) error {
	text, button, thread := textOpenKitchen, textGoKitchen, h.opts.Threads.Kitchen
	if prefix == "Bar" {
		text, button, thread = textOpenBar, textGoBar, h.opts.Threads.Bar
	}
	kb := keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: button, URL: notify.ThreadLink(h.opts.GroupChatID, thread)}})
	return tghelpers.SendWithMarkup(c, text, kb)
}

// markKeyboard is the reply keyboard while mark mode is on. Inside a lane
// the lane buttons give way to Back to Main.
func markKeyboard(inLane bool) *tele.ReplyMarkup {
	first := []string{BtnKitchen, BtnBar}
	if inLane {
		first = []string{BtnBackToMain}
	}
	return keyboard.ReplyButtons(first, []string{BtnPlaceOrder}, []string{BtnStopMarkMode})
}

func (h *Handlers) marking(c tele.Context) bool {
	return h.opts.Marks.Book().Enabled(tghelpers.SenderID(c))
}

// start resets the sender's mark mode and conversation and shows the main menu.
func (h *Handlers) start(c tele.Context) error {
	user := tghelpers.SenderID(c)
	h.opts.Marks.Book().Disable(user)
	h.opts.FSM.Clear(user)
	return tghelpers.SendWithMarkup(c, textWelcome, h.mainKeyboard())
}

func (h *Handlers) help(c tele.Context) error {
	return tghelpers.SendText(c, strings.ReplaceAll(textHelp, "@botname", "@"+h.opts.BotUsername))
}

func (h *Handlers) subCategories(lane catalog.Lane) ([]string, error) {
	if subs := h.opts.Subcategories[lane]; len(subs) > 0 {
		return subs, nil
	}
	return h.opts.Catalog.SubCategories(lane, h.opts.KitchenThreshold)
}

// lane shows the sub-category reply keyboard of a lane.
func (h *Handlers) lane(lane catalog.Lane) tele.HandlerFunc {
	return func(c tele.Context) error {
		subs, err := h.subCategories(lane)
		if err != nil {
			return err
		}
		name := string(lane)
		text := fmt.Sprintf(textChooseSub, name)
		var tail [][]string
		if h.marking(c) {
			text = fmt.Sprintf(textChooseSubMark, name)
			tail = [][]string{{BtnBackToMain}, {BtnPlaceOrder}, {BtnStopMarkMode}}
		} else {
			tail = [][]string{{BtnBackToMain}}
		}
		return tghelpers.SendWithMarkup(c, text, keyboard.ReplyGrid(subs, 3, tail...))
	}
}

// matchSubCategory resolves text to a known sub-category of either lane.
func (h *Handlers) matchSubCategory(text string) (string, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, nil
	}
	for _, lane := range []catalog.Lane{catalog.LaneKitchen, catalog.LaneBar} {
		subs, err := h.subCategories(lane)
		if err != nil {
			return "", false, err
		}
		for _, sub := range subs {
			if strings.EqualFold(sub, text) {
				return sub, true, nil
			}
		}
	}
	return "", false, nil
}

// subCategory lists the items of a sub-category typed or pressed on the
// reply keyboard. Other text falls through to UnknownText.
func (h *Handlers) subCategory(c tele.Context) error {
	if m := laneOrderLabel.FindStringSubmatch(strings.TrimSpace(c.Text())); m != nil {
		return h.laneLink(c, m[1])
	}
	sub, ok, err := h.matchSubCategory(c.Text())
	if err != nil {
		return err
	}
	if !ok {
		return h.UnknownText()(c)
	}
	items, err := h.opts.Catalog.Items(catalog.BySubCategory(sub))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		kb := h.mainKeyboard()
		if h.marking(c) {
			kb = markKeyboard(true)
		}
		return tghelpers.SendWithMarkup(c, fmt.Sprintf(textNoItemsFor, sub), kb)
	}
	return tghelpers.SendWithMarkup(c, fmt.Sprintf(textItemsOf, capitalize(sub)),
		keyboard.InlineColumn(h.itemButtons(tghelpers.SenderID(c), items)))
}

// itemButtons renders one button per item: add_to_order normally, or
// mark/unmark while the user is in mark mode.
func (h *Handlers) itemButtons(user int64, items []catalog.Item) []keyboard.InlineBtn {
	book := h.opts.Marks.Book()
	marking := book.Enabled(user)
	btns := make([]keyboard.InlineBtn, 0, len(items))
	for _, it := range items {
		switch {
		case !marking:
			btns = append(btns, keyboard.InlineBtn{Text: it.Name, Unique: pipeline.ActionAdd, Data: it.SKU})
		case book.IsMarked(user, it.SKU):
			btns = append(btns, keyboard.InlineBtn{Text: markedPrefix + it.Name, Unique: actionUnmarkItem, Data: it.SKU})
		default:
			btns = append(btns, keyboard.InlineBtn{Text: it.Name, Unique: actionMarkItem, Data: it.SKU})
		}
	}
	return btns
}

func categoryButtons(cats []catalog.Category) []keyboard.InlineBtn {
	btns := make([]keyboard.InlineBtn, 0, len(cats))
	for _, cat := range cats {
		btns = append(btns, keyboard.InlineBtn{Text: cat.Name, Unique: actionShowItems, Data: strconv.Itoa(cat.ID)})
	}
	return btns
}

// categories lists every category as inline buttons.
func (h *Handlers) categories(c tele.Context) error {
	cats, err := h.opts.Catalog.Categories()
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return tghelpers.SendText(c, textNoCategories)
	}
	return tghelpers.SendWithMarkup(c, textAllCategories, keyboard.InlineColumn(categoryButtons(cats)))
}

// showItems replaces a category list with the items of the pressed category.
func (h *Handlers) showItems(c tele.Context) error {
	id, err := callbacks.PayloadInt(c)
	if err != nil {
		return tghelpers.Answer(c, textUnknownAction)
	}
	items, err := h.opts.Catalog.Items(catalog.ByCategoryID(id))
	if err != nil {
		return err
	}
	title := "Items"
	if cat, ok, err := h.opts.Catalog.CategoryByID(id); err != nil {
		return err
	} else if ok {
		title = cat.Name
	}
	btns := h.itemButtons(tghelpers.SenderID(c), items)
	btns = append(btns, keyboard.InlineBtn{Text: textGoBack, Unique: actionBackToCategories, Data: strconv.Itoa(id)})
	return tghelpers.EditText(c, title+":", keyboard.InlineColumn(btns))
}

// backToCategories shows the sibling categories of the one the user left.
func (h *Handlers) backToCategories(c tele.Context) error {
	id, err := callbacks.PayloadInt(c)
	if err != nil {
		return tghelpers.Answer(c, textUnknownAction)
	}
	parent := string(catalog.LaneKitchen)
	if cat, ok, err := h.opts.Catalog.CategoryByID(id); err != nil {
		return err
	} else if ok && cat.Parent != "" {
		parent = cat.Parent
	}
	cats, err := h.opts.Catalog.Categories(catalog.ByParent(parent))
	if err != nil {
		return err
	}
	return tghelpers.EditText(c, fmt.Sprintf(textCategoriesFor, capitalize(parent)),
		keyboard.InlineColumn(categoryButtons(cats)))
}

func (h *Handlers) list(list catalog.List) tele.HandlerFunc {
	format, missing := textTodayList, textTodayMissing
	if list == catalog.ListCustom {
		format, missing = textCustomList, textCustomListMiss
	}
	return func(c tele.Context) error {
		body, ok, err := h.opts.Catalog.ReadList(list)
		if err != nil {
			return err
		}
		if !ok || strings.TrimSpace(body) == "" {
			return tghelpers.SendText(c, missing)
		}
		return tghelpers.SendMD(c, fmt.Sprintf(format, strings.TrimSpace(body)))
	}
}

// search explains inline mode and offers a button that starts it in the
// current chat.
func (h *Handlers) search(c tele.Context) error {
	empty := ""
	kb := keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: textSearchButton, InlineQuery: &empty}})
	return tghelpers.SendWithMarkup(c, fmt.Sprintf(textSearch, h.opts.BotUsername), kb)
}
