package ui

import tele "gopkg.in/telebot.v4"

// NewSimpleArticleResult creates an ArticleResult with given ID, title and content.
func NewSimpleArticleResult(id, title, text string) *tele.ArticleResult {
	result := &tele.ArticleResult{
		Title: title,
		Text:  text,
	}
	result.SetResultID(id)
	return result
}

// NewArticleWithMarkup is NewSimpleArticleResult with a description and an
// inline keyboard attached to the sent message.
func NewArticleWithMarkup(id, title, description, text string, markup *tele.ReplyMarkup) *tele.ArticleResult {
	result := NewSimpleArticleResult(id, title, text)
	result.Description = description
	result.ReplyMarkup = markup
	return result
}
