package telegram

import (
	"strconv"
	"strings"

	"github.com/baraholka/marketbot/pkg/util"
)

// Callback actions carried in inline button payloads. Payloads are the
// action name followed by an underscore and a decimal id.
const (
	ActionViewTicket      = "view_ticket"
	ActionCloseTicket     = "close_ticket"
	ActionAdminViewTicket = "admin_view_ticket"
	ActionAdminTake       = "admin_take"
	ActionAdminClose      = "admin_close"
	ActionReplyTicket     = "reply_ticket"
	ActionStartChat       = "start_chat"
	ActionDeclineChat     = "decline_chat"
	ActionEndChat         = "end_chat"
	ActionCancelChat      = "cancel_chat"
	ActionAdminCancelChat = "admin_cancel_chat"
	ActionSelectUser      = "select_user"
	ActionGrantPrivilege  = "grant_privilege"
)

// actionPrefixes is ordered longest first so that admin_view_ticket_42
// never parses as a bare view_ticket payload.
var actionPrefixes = []string{
	ActionAdminCancelChat,
	ActionAdminViewTicket,
	ActionAdminClose,
	ActionAdminTake,
	ActionCloseTicket,
	ActionDeclineChat,
	ActionReplyTicket,
	ActionSelectUser,
	ActionViewTicket,
	ActionCancelChat,
	ActionStartChat,
	ActionEndChat,
}

// Callback is a decoded inline button payload.
type Callback struct {
	Action string
	ID     int64
}

// ParseCallback decodes an id-carrying payload. Payloads that match no
// known action or carry a non-numeric id are rejected; the router treats
// such presses as stale buttons.
func ParseCallback(data string) (Callback, error) {
	for _, action := range actionPrefixes {
		prefix := action + "_"
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
		if err != nil {
			return Callback{}, util.NewValidationError("malformed callback payload", map[string]any{"data": data})
		}
		return Callback{Action: action, ID: id}, nil
	}
	return Callback{}, util.NewValidationError("unknown callback action", map[string]any{"data": data})
}

// GrantPrivilegeCallback decodes grant_privilege payloads, which carry a
// privilege name instead of a numeric id.
func GrantPrivilegeCallback(data string) (string, bool) {
	prefix := ActionGrantPrivilege + "_"
	if !strings.HasPrefix(data, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(data, prefix)
	if name == "" {
		return "", false
	}
	return name, true
}

// CallbackData encodes an action and id into a button payload.
func CallbackData(action string, id int64) string {
	return action + "_" + strconv.FormatInt(id, 10)
}
