package bot

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomRequestIsCopiedForApproval(t *testing.T) {
	f := newFixture(t)

	start := textContext(staffID, BtnCustom)
	require.NoError(t, f.say(t, start))
	assert.Equal(t, textCustomPrompt, start.lastText(t))
	require.True(t, f.h.FSM().InProgress(staffID))

	req := textContext(staffID, "2 boxes of lemons please")
	require.NoError(t, f.say(t, req))
	assert.Equal(t, textCustomSent, req.lastText(t))
	assert.False(t, f.h.FSM().InProgress(staffID))

	posted := f.rec.InThread(threads.Manager)
	require.Len(t, posted, 2)
	assert.Equal(t, 55, posted[0].CopyOf)
	assert.Equal(t, "📋 Custom Item Approval Required from alice", posted[1].Text)
	btns := posted[1].Keyboard[0]
	require.Len(t, btns, 2)
	assert.Equal(t, actionApproveCustom, btns[0].Action)
	assert.Equal(t, strconv.Itoa(posted[0].ID), btns[0].Payload)

	approve := callbackContext(adminID, actionApproveCustom, btns[0].Payload, posted[1].ID)
	require.NoError(t, f.press(t, approve))
	require.Len(t, approve.edits, 1)
	assert.Equal(t, textCustomApproved, approve.edits[0].What)
	assert.Equal(t, textCustomOK, approve.response(t))

	reject := callbackContext(adminID, actionRejectCustom, btns[1].Payload, posted[1].ID)
	require.NoError(t, f.press(t, reject))
	assert.Equal(t, textCustomRejected, reject.edits[0].What)
	assert.Equal(t, textCustomNo, reject.response(t))
}

func TestCustomRequestFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.h.FSM().SetState(staffID, StateCustomRequest)
	f.rec.FailOn["copy"] = errors.New("telegram: forbidden")

	req := textContext(staffID, "oat milk")
	require.NoError(t, f.say(t, req))
	assert.Equal(t, textCustomFailed, req.lastText(t))
	assert.True(t, f.h.FSM().InProgress(staffID))

	retry := textContext(staffID, "oat milk")
	require.NoError(t, f.say(t, retry))
	assert.Equal(t, textCustomSent, retry.lastText(t))
}

func TestMenuButtonLeavesCustomRequest(t *testing.T) {
	f := newFixture(t)
	f.h.FSM().SetState(staffID, StateCustomRequest)

	c := textContext(staffID, BtnKitchen)
	require.NoError(t, f.say(t, c))
	assert.Equal(t, "Choose a kitchen sub-category:", c.lastText(t))
	assert.False(t, f.h.FSM().InProgress(staffID))
	assert.Empty(t, f.rec.Sent)
}

func TestCancelConversation(t *testing.T) {
	f := newFixture(t)

	c := textContext(staffID, "/cancel")
	require.NoError(t, f.say(t, c))
	assert.Equal(t, textNothingToCancel, c.lastText(t))

	f.h.FSM().SetState(staffID, StateCustomRequest)
	c = textContext(staffID, "/cancel")
	require.NoError(t, f.h.cancelConversation(c))
	assert.Equal(t, textCustomCancelled, c.lastText(t))
	assert.False(t, f.h.FSM().InProgress(staffID))

	f.h.FSM().SetState(adminID, StateAdminJSON)
	c = textContext(adminID, "/cancel")
	require.NoError(t, f.h.cancelConversation(c))
	assert.Equal(t, textAdminCancelled, c.lastText(t))
}
