package store

import "strings"

// Synchronized field names. Each is stored locally under a per-user key and
// mirrored as a sibling field of the user's remote document.
const (
	FieldTodos                = "todos"
	FieldEvents               = "events"
	FieldTransactions         = "transactions"
	FieldBudget               = "budget"
	FieldSettings             = "settings"
	FieldAIMessages           = "aiMessages"
	FieldChatSessions         = "chatSessions"
	FieldCurrentChatSessionID = "currentChatSessionId"
	FieldAIProvider           = "aiProvider"
	FieldAIResponseStyle      = "aiResponseStyle"
	FieldCustomAIModes        = "customAiModes"
)

// SyncedFields lists every field reconciled at sign-in.
var SyncedFields = []string{
	FieldTodos,
	FieldEvents,
	FieldTransactions,
	FieldBudget,
	FieldSettings,
	FieldAIMessages,
	FieldChatSessions,
	FieldCurrentChatSessionID,
	FieldAIProvider,
	FieldAIResponseStyle,
	FieldCustomAIModes,
}

// KeyUser holds the last signed-in identity. It is not synchronized.
const KeyUser = "user"

// fieldNotifications is local-only and scoped per user like synced fields.
const fieldNotifications = "notifications"

// UserKey returns the local key of field for the given user.
func UserKey(userID, field string) string {
	return "users/" + userID + "/" + field
}

// NotificationsKey returns the local key of the user's notifications.
func NotificationsKey(userID string) string {
	return UserKey(userID, fieldNotifications)
}

// UserKeys returns every local key owned by userID.
func UserKeys(userID string) []string {
	keys := make([]string, 0, len(SyncedFields)+1)
	for _, f := range SyncedFields {
		keys = append(keys, UserKey(userID, f))
	}
	return append(keys, NotificationsKey(userID))
}

// IsUserKey reports whether key belongs to userID's scope.
func IsUserKey(key, userID string) bool {
	return strings.HasPrefix(key, "users/"+userID+"/")
}
