package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, Chunk([]int{1, 2, 3, 4, 5}, 3))
	assert.Equal(t, [][]int{{1}, {2}}, Chunk([]int{1, 2}, 0))
	assert.Empty(t, Chunk([]int(nil), 3))
}

func TestInlineButtonsRows(t *testing.T) {
	query := "1 2"
	kb := InlineButtonsRows(
		[]InlineBtn{{Text: "+1", Unique: "qty_add", Data: "SKU1|2"}, {Text: "✅", Unique: "approve_item", Data: "SKU1|2"}},
		[]InlineBtn{{Text: "Search", InlineQuery: &query}},
		[]InlineBtn{{Text: "Go", URL: "https://t.me/c/123/2"}},
	)
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "+1", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "qty_add", kb.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "SKU1|2", kb.InlineKeyboard[0][0].Data)
	assert.Equal(t, "1 2", kb.InlineKeyboard[1][0].InlineQueryChat)
	assert.Equal(t, "https://t.me/c/123/2", kb.InlineKeyboard[2][0].URL)
	assert.Empty(t, kb.InlineKeyboard[2][0].Unique)
}

func TestReplyGrid(t *testing.T) {
	kb := ReplyGrid([]string{"Meat", "Fish", "Dairy", "Veg"}, 3, []string{"🔙 Back to Main"})
	require.Len(t, kb.ReplyKeyboard, 3)
	assert.Len(t, kb.ReplyKeyboard[0], 3)
	assert.Equal(t, "🔙 Back to Main", kb.ReplyKeyboard[2][0].Text)
	assert.True(t, kb.ResizeKeyboard)
}
