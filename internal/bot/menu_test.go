package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

func replyLabels(m *tele.ReplyMarkup) [][]string {
	out := make([][]string, 0, len(m.ReplyKeyboard))
	for _, row := range m.ReplyKeyboard {
		r := make([]string, 0, len(row))
		for _, b := range row {
			r = append(r, b.Text)
		}
		out = append(out, r)
	}
	return out
}

func TestStartResetsMarkModeAndConversation(t *testing.T) {
	f := newFixture(t)
	f.h.opts.Marks.Book().Enable(staffID)
	f.h.FSM().SetState(staffID, StateCustomRequest)

	c := textContext(staffID, BtnBackToMain)
	require.NoError(t, f.say(t, c))

	assert.Equal(t, textWelcome, c.lastText(t))
	assert.Equal(t, []string{BtnKitchen, BtnBar}, replyLabels(c.lastMarkup(t))[0])
	assert.False(t, f.h.opts.Marks.Book().Enabled(staffID))
	assert.False(t, f.h.FSM().InProgress(staffID))
}

func TestLaneOrderButtonsCountAndLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, sku := range []string{"SKU123", "SKU124", "B1"} {
		_, err := f.h.opts.Pipeline.Submit(ctx, sku, "alice")
		require.NoError(t, err)
	}

	c := textContext(staffID, "/start")
	require.NoError(t, f.say(t, c))
	rows := replyLabels(c.lastMarkup(t))
	assert.Equal(t, []string{"Kitch Order (2)", "Bar Order (1)"}, rows[len(rows)-1])

	kitchen := textContext(staffID, "Kitch Order (2)")
	require.NoError(t, f.say(t, kitchen))
	assert.Equal(t, textOpenKitchen, kitchen.lastText(t))
	btn := kitchen.lastMarkup(t).InlineKeyboard[0][0]
	assert.Equal(t, textGoKitchen, btn.Text)
	assert.Equal(t, "https://t.me/c/1234567890/2", btn.URL)

	bar := textContext(staffID, "Bar Order (0)")
	require.NoError(t, f.say(t, bar))
	assert.Equal(t, textOpenBar, bar.lastText(t))
	assert.Equal(t, "https://t.me/c/1234567890/3", bar.lastMarkup(t).InlineKeyboard[0][0].URL)
}

func TestLaneShowsSubCategories(t *testing.T) {
	f := newFixture(t)

	c := textContext(staffID, BtnKitchen)
	require.NoError(t, f.say(t, c))
	assert.Equal(t, "Choose a kitchen sub-category:", c.lastText(t))
	assert.Equal(t, [][]string{{"veggies"}, {BtnBackToMain}}, replyLabels(c.lastMarkup(t)))

	f.h.opts.Subcategories = map[catalog.Lane][]string{catalog.LaneBar: {"soft", "alcohol", "fruits", "cigs"}}
	f.h.opts.Marks.Book().Enable(staffID)
	c = textContext(staffID, BtnBar)
	require.NoError(t, f.say(t, c))
	assert.Equal(t, "Select bar sub-category (Mark Mode):", c.lastText(t))
	assert.Equal(t, [][]string{
		{"soft", "alcohol", "fruits"},
		{"cigs"},
		{BtnBackToMain},
		{BtnPlaceOrder},
		{BtnStopMarkMode},
	}, replyLabels(c.lastMarkup(t)))
}

func TestSubCategoryTextListsItems(t *testing.T) {
	f := newFixture(t)

	c := textContext(staffID, "Veggies")
	require.NoError(t, f.say(t, c))
	assert.Equal(t, "Veggies items:", c.lastText(t))

	kb := c.lastMarkup(t).InlineKeyboard
	require.Len(t, kb, 2)
	assert.Equal(t, "Tomatoes", kb[0][0].Text)
	assert.Equal(t, pipeline.ActionAdd, kb[0][0].Unique)
	assert.Equal(t, "SKU123", kb[0][0].Data)
}

func TestUnknownTextIsAnsweredOnlyInPrivate(t *testing.T) {
	f := newFixture(t)

	c := textContext(staffID, "hello there")
	require.NoError(t, f.say(t, c))
	assert.Equal(t, textUnknown, c.lastText(t))

	group := textContext(staffID, "hello there")
	group.chat = &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}
	require.NoError(t, f.say(t, group))
	assert.Empty(t, group.sends)
}

func TestCategoriesAndBack(t *testing.T) {
	f := newFixture(t)

	c := textContext(staffID, BtnCategories)
	require.NoError(t, f.say(t, c))
	assert.Equal(t, textAllCategories, c.lastText(t))
	assert.Len(t, c.lastMarkup(t).InlineKeyboard, 3)

	show := callbackContext(staffID, actionShowItems, "20", 60)
	require.NoError(t, f.press(t, show))
	require.Len(t, show.edits, 1)
	assert.Equal(t, "Vegetables:", show.edits[0].What)
	opts := show.edits[0].Opts[0].(*tele.SendOptions)
	rows := opts.ReplyMarkup.InlineKeyboard
	require.Len(t, rows, 3)
	assert.Equal(t, actionBackToCategories, rows[2][0].Unique)

	back := callbackContext(staffID, actionBackToCategories, "20", 60)
	require.NoError(t, f.press(t, back))
	require.Len(t, back.edits, 1)
	assert.Equal(t, "Categories for Kitchen:", back.edits[0].What)
	assert.Len(t, back.edits[0].Opts[0].(*tele.SendOptions).ReplyMarkup.InlineKeyboard, 2)
}

func TestListsFromDataDir(t *testing.T) {
	f := newFixture(t)

	c := textContext(staffID, BtnTodayList)
	require.NoError(t, f.say(t, c))
	assert.Equal(t, "📋 Today's List:\n```\nTomatoes,2\nBasil,1\n```", c.lastText(t))

	c = textContext(staffID, BtnCustomList)
	require.NoError(t, f.say(t, c))
	assert.Equal(t, textCustomListMiss, c.lastText(t))
}

func TestSearchOffersInlineButton(t *testing.T) {
	f := newFixture(t)
	c := textContext(staffID, BtnSearch)
	require.NoError(t, f.say(t, c))
	assert.Contains(t, c.lastText(t), "@kalibot")
	btn := c.lastMarkup(t).InlineKeyboard[0][0]
	assert.Equal(t, textSearchButton, btn.Text)
	assert.Equal(t, "", btn.InlineQueryChat)
}
