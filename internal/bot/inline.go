package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/core/telegram/keyboard"
	"github.com/m3rciful/orderbot/core/telegram/ui"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

// maxInlineResults is the Telegram limit for one inline answer.
const maxInlineResults = 50

// inlineStage is one entry of the numbered inline menu. Typing its code
// selects it; picking the article types the code for the next level.
type inlineStage struct {
	code        string
	id          string
	title       string
	description string
	lane        catalog.Lane
	subs        []string
}

var inlineRoots = []inlineStage{
	{code: "1", id: "kitchen", title: "1. KITCHEN", description: "Kitchen items and supplies"},
	{code: "2", id: "bar", title: "2. BAR", description: "Bar items and supplies"},
}

var inlineGroups = []inlineStage{
	{code: "1 1", id: "kitchen_food", title: "1. FOOD", description: "Meat, fish, dairy, vegetables, spices, sauces",
		lane: catalog.LaneKitchen, subs: []string{"meat", "fish/seafood", "dairy", "veggies", "spices", "sauce"}},
	{code: "1 2", id: "kitchen_households", title: "2. HOUSEHOLDS", description: "Cleaning, plastics, dry goods",
		lane: catalog.LaneKitchen, subs: []string{"cleaning", "plastics", "dry"}},
	{code: "2 1", id: "bar_food", title: "1. FOOD", description: "Fruits, ingredients, desserts",
		lane: catalog.LaneBar, subs: []string{"fruits", "ingredients"}},
	{code: "2 2", id: "bar_households", title: "2. HOUSEHOLDS", description: "Cleaning, cups, office supplies",
		lane: catalog.LaneBar, subs: []string{"households"}},
}

func stageResults(stages []inlineStage) tele.Results {
	out := make(tele.Results, 0, len(stages))
	for _, st := range stages {
		out = append(out, ui.NewArticleWithMarkup(st.id, st.title, st.description, st.code+" ", nil))
	}
	return out
}

// inlineFilter maps a query to the item filters it selects, or to the
// next menu level when the query names a root.
func (h *Handlers) inlineFilter(query string) (tele.Results, []catalog.ItemFilter) {
	switch query {
	case "":
		return stageResults(inlineRoots), nil
	case "1":
		return stageResults(inlineGroups[:2]), nil
	case "2":
		return stageResults(inlineGroups[2:]), nil
	}
	for _, g := range inlineGroups {
		if strings.HasPrefix(query, g.code) {
			return nil, []catalog.ItemFilter{
				catalog.ByLane(g.lane, h.opts.KitchenThreshold),
				catalog.BySubCategory(g.subs...),
			}
		}
	}
	return nil, []catalog.ItemFilter{catalog.NameContains(query)}
}

func itemArticle(it catalog.Item) tele.Result {
	kb := keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: textAddToOrder, Unique: pipeline.ActionAdd, Data: it.SKU}})
	desc := it.CategoryName + " - " + it.SubCategory
	return ui.NewArticleWithMarkup(it.SKU, it.Name, desc, fmt.Sprintf(textInlineMessage, it.Name), kb)
}

// inlineQuery answers the staged menu or a name search.
func (h *Handlers) inlineQuery(c tele.Context) error {
	q := c.Query()
	if q == nil {
		return nil
	}
	query := strings.TrimSpace(q.Text)
	results, filters := h.inlineFilter(query)
	if filters != nil {
		items, err := h.opts.Catalog.Items(filters...)
		if err != nil {
			return err
		}
		items = items[:min(len(items), maxInlineResults)]
		results = make(tele.Results, 0, len(items))
		for _, it := range items {
			results = append(results, itemArticle(it))
		}
	}
	// A zero cache time is omitted from the request and Telegram would cache
	// the answer for five minutes.
	return c.Answer(&tele.QueryResponse{Results: results, CacheTime: 1, IsPersonal: true})
}
