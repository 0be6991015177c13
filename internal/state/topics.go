package state

// Event names emitted on the bus after a mutation completes.
const (
	TodosChanged              = "todosChanged"
	EventsChanged             = "eventsChanged"
	TransactionsChanged       = "transactionsChanged"
	BudgetChanged             = "budgetChanged"
	SettingsChanged           = "settingsChanged"
	AIMessagesChanged         = "aiMessagesChanged"
	CustomAIModesChanged      = "customAiModesChanged"
	AIProviderChanged         = "aiProviderChanged"
	AIResponseStyleChanged    = "aiResponseStyleChanged"
	NotificationsChanged      = "notificationsChanged"
	ChatSessionsChanged       = "chatSessionsChanged"
	CurrentChatSessionChanged = "currentChatSessionChanged"
	UserChanged               = "userChanged"
	StateLoaded               = "stateLoaded"
)

// Topics lists every event name the container emits.
var Topics = []string{
	TodosChanged, EventsChanged, TransactionsChanged, BudgetChanged,
	SettingsChanged, AIMessagesChanged, CustomAIModesChanged, AIProviderChanged,
	AIResponseStyleChanged, NotificationsChanged, ChatSessionsChanged,
	CurrentChatSessionChanged, UserChanged, StateLoaded,
}

// emission is one deferred bus event.
type emission struct {
	name    string
	payload any
}

// batch collects the events of a mutation so they can be emitted once the
// container lock is released.
type batch struct {
	emissions []emission
}

func (b *batch) add(name string, payload any) {
	b.emissions = append(b.emissions, emission{name: name, payload: payload})
}
