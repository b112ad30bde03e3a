package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/internal/pipeline"
)

func queryResults(t *testing.T, f *fixture, text string) []*tele.ArticleResult {
	t.Helper()
	c := newContext(staffID)
	c.query = &tele.Query{ID: "q", Sender: c.sender, Text: text}
	require.NoError(t, f.h.inlineQuery(c))
	require.Len(t, c.answers, 1)
	out := make([]*tele.ArticleResult, 0, len(c.answers[0].Results))
	for _, r := range c.answers[0].Results {
		a, ok := r.(*tele.ArticleResult)
		require.True(t, ok)
		out = append(out, a)
	}
	return out
}

func titles(rs []*tele.ArticleResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Title)
	}
	return out
}

func TestInlineStagedMenu(t *testing.T) {
	f := newFixture(t)

	root := queryResults(t, f, "")
	assert.Equal(t, []string{"1. KITCHEN", "2. BAR"}, titles(root))
	assert.Equal(t, "1 ", root[0].Text)

	kitchen := queryResults(t, f, "1 ")
	assert.Equal(t, []string{"1. FOOD", "2. HOUSEHOLDS"}, titles(kitchen))
	assert.Equal(t, "1 1 ", kitchen[0].Text)

	bar := queryResults(t, f, "2")
	assert.Equal(t, "2 2 ", bar[1].Text)

	food := queryResults(t, f, "1 1")
	assert.Equal(t, []string{"Tomatoes", "Basil"}, titles(food))

	barFood := queryResults(t, f, "2 1 ")
	assert.Equal(t, []string{"Lime"}, titles(barFood))

	assert.Empty(t, queryResults(t, f, "1 2"))
}

func TestInlineNameSearch(t *testing.T) {
	f := newFixture(t)
	rs := queryResults(t, f, "TOMA")
	require.Len(t, rs, 1)

	r := rs[0]
	assert.Equal(t, "SKU123", r.ID)
	assert.Equal(t, "Vegetables - veggies", r.Description)
	assert.Equal(t, "🛒 Tomatoes - Sent for manager approval", r.Text)
	require.NotNil(t, r.ReplyMarkup)
	btn := r.ReplyMarkup.InlineKeyboard[0][0]
	assert.Equal(t, textAddToOrder, btn.Text)
	assert.Equal(t, pipeline.ActionAdd, btn.Unique)
	assert.Equal(t, "SKU123", btn.Data)
}
