package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

const stateEditing State = "editing"

func TestStateLifecycle(t *testing.T) {
	m := NewMemoryManager()
	assert.Equal(t, StateIdle, m.GetState(1))
	assert.False(t, m.InProgress(1))

	m.SetState(1, stateEditing)
	assert.Equal(t, stateEditing, m.GetState(1))
	assert.False(t, m.InProgress(1), "no handler registered yet")

	m.Handle(stateEditing, func(tele.Context) error { return nil })
	assert.True(t, m.InProgress(1))
	assert.False(t, m.InProgress(2))

	m.ClearState(1)
	assert.Equal(t, StateIdle, m.GetState(1))
	assert.False(t, m.InProgress(1))
}

func TestTempData(t *testing.T) {
	m := NewMemoryManager()
	m.SetTemp(7, "file", "items")
	v, ok := m.GetTemp(7, "file")
	assert.True(t, ok)
	assert.Equal(t, "items", v)

	snapshot := m.Get(7)
	snapshot.TempData["file"] = "mutated"
	v, _ = m.GetTemp(7, "file")
	assert.Equal(t, "items", v, "Get returns a copy")

	m.ClearTemp(7, "file")
	_, ok = m.GetTemp(7, "file")
	assert.False(t, ok)

	m.SetTemp(7, "a", 1)
	m.Clear(7)
	_, ok = m.GetTemp(7, "a")
	assert.False(t, ok)
	assert.Equal(t, StateIdle, m.Get(7).State)
}
