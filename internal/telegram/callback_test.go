package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baraholka/marketbot/pkg/util"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Callback
	}{
		{name: "view ticket", data: "view_ticket_9", want: Callback{Action: ActionViewTicket, ID: 9}},
		{name: "admin view outranks view", data: "admin_view_ticket_42", want: Callback{Action: ActionAdminViewTicket, ID: 42}},
		{name: "claim", data: "admin_take_17", want: Callback{Action: ActionAdminTake, ID: 17}},
		{name: "invite", data: "reply_ticket_9", want: Callback{Action: ActionReplyTicket, ID: 9}},
		{name: "accept invite", data: "start_chat_9", want: Callback{Action: ActionStartChat, ID: 9}},
		{name: "decline invite", data: "decline_chat_9", want: Callback{Action: ActionDeclineChat, ID: 9}},
		{name: "end chat", data: "end_chat_9", want: Callback{Action: ActionEndChat, ID: 9}},
		{name: "admin cancel outranks cancel", data: "admin_cancel_chat_3", want: Callback{Action: ActionAdminCancelChat, ID: 3}},
		{name: "select user", data: "select_user_555", want: Callback{Action: ActionSelectUser, ID: 555}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCallback(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	for _, data := range []string{"", "view_ticket_", "view_ticket_abc", "frobnicate_9", "end_chat"} {
		_, err := ParseCallback(data)
		require.Error(t, err, data)
		assert.True(t, util.IsCode(err, util.CodeValidation), data)
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	data := CallbackData(ActionAdminTake, 17)
	assert.Equal(t, "admin_take_17", data)

	cb, err := ParseCallback(data)
	require.NoError(t, err)
	assert.Equal(t, Callback{Action: ActionAdminTake, ID: 17}, cb)
}

func TestGrantPrivilegeCallback(t *testing.T) {
	name, ok := GrantPrivilegeCallback("grant_privilege_vip")
	require.True(t, ok)
	assert.Equal(t, "vip", name)

	_, ok = GrantPrivilegeCallback("grant_privilege_")
	assert.False(t, ok)

	_, ok = GrantPrivilegeCallback("admin_take_3")
	assert.False(t, ok)
}
