package state

import (
	"cmp"
	"slices"
	"time"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/store"
)

// AddTodo stores t and returns it with defaults applied: a generated id, a
// medium priority and the current creation time.
func (c *Container) AddTodo(t model.Todo) (model.Todo, error) {
	if t.ID == "" {
		t.ID = c.newID()
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now()
	}
	if err := t.Validate(); err != nil {
		return model.Todo{}, err
	}

	err := c.update(func(b *batch) error {
		if c.todoIndexLocked(t.ID) >= 0 {
			return &model.ValidationError{Entity: "todo", Field: "id", Reason: "already exists"}
		}
		c.todos = append(c.todos, t)
		c.todosChangedLocked(b)
		return nil
	})
	if err != nil {
		return model.Todo{}, err
	}
	return t, nil
}

// UpdateTodo merges p into the todo with the given id. An unknown id is
// ignored.
func (c *Container) UpdateTodo(id string, p model.TodoPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.update(func(b *batch) error {
		i := c.todoIndexLocked(id)
		if i < 0 {
			return nil
		}
		c.todos[i] = c.todos[i].Apply(p)
		c.todosChangedLocked(b)
		return nil
	})
}

// DeleteTodo removes the todo with the given id. An unknown id is ignored.
func (c *Container) DeleteTodo(id string) {
	_ = c.update(func(b *batch) error {
		i := c.todoIndexLocked(id)
		if i < 0 {
			return nil
		}
		c.todos = slices.Delete(c.todos, i, i+1)
		c.todosChangedLocked(b)
		return nil
	})
}

func (c *Container) todoIndexLocked(id string) int {
	return slices.IndexFunc(c.todos, func(t model.Todo) bool { return t.ID == id })
}

func (c *Container) todosChangedLocked(b *batch) {
	c.persistLocked(store.FieldTodos, c.todos)
	c.invalidateLocked(b, model.SlotDailyBrief, model.SlotTimeManagementAdvice)
	b.add(TodosChanged, slices.Clone(c.todos))
}

// Todos returns a copy of the todo list.
func (c *Container) Todos() []model.Todo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.todos)
}

// AddEvent stores e. The recurrence defaults to none.
func (c *Container) AddEvent(e model.Event) (model.Event, error) {
	if e.ID == "" {
		e.ID = c.newID()
	}
	if e.Recurrence == "" {
		e.Recurrence = model.RecurrenceNone
	}
	if err := e.Validate(); err != nil {
		return model.Event{}, err
	}

	err := c.update(func(b *batch) error {
		if c.eventIndexLocked(e.ID) >= 0 {
			return &model.ValidationError{Entity: "event", Field: "id", Reason: "already exists"}
		}
		c.events = append(c.events, e)
		c.eventsChangedLocked(b)
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// UpdateEvent merges p into the event with the given id. An unknown id is
// ignored.
func (c *Container) UpdateEvent(id string, p model.EventPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.update(func(b *batch) error {
		i := c.eventIndexLocked(id)
		if i < 0 {
			return nil
		}
		c.events[i] = c.events[i].Apply(p)
		c.eventsChangedLocked(b)
		return nil
	})
}

// DeleteEvent removes the event with the given id. An unknown id is ignored.
func (c *Container) DeleteEvent(id string) {
	_ = c.update(func(b *batch) error {
		i := c.eventIndexLocked(id)
		if i < 0 {
			return nil
		}
		c.events = slices.Delete(c.events, i, i+1)
		c.eventsChangedLocked(b)
		return nil
	})
}

func (c *Container) eventIndexLocked(id string) int {
	return slices.IndexFunc(c.events, func(e model.Event) bool { return e.ID == id })
}

func (c *Container) eventsChangedLocked(b *batch) {
	c.persistLocked(store.FieldEvents, c.events)
	c.invalidateLocked(b, model.SlotDailyBrief, model.SlotTimeManagementAdvice)
	b.add(EventsChanged, slices.Clone(c.events))
}

// Events returns a copy of the stored events. Recurring events appear once.
func (c *Container) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.events)
}

// EventsForDateRange expands every event into its occurrences within
// [start, end], compared by calendar day. Each occurrence is a copy of the
// stored event with Date set to the occurrence date. Results are ordered by
// date, then time, then title.
func (c *Container) EventsForDateRange(start, end time.Time) []model.Event {
	c.mu.RLock()
	stored := slices.Clone(c.events)
	c.mu.RUnlock()

	var out []model.Event
	for _, e := range stored {
		for day := range e.Occurrences(start, end) {
			occ := e
			occ.Date = day.Format(model.DateLayout)
			out = append(out, occ)
		}
	}

	slices.SortStableFunc(out, func(a, b model.Event) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.Time, b.Time),
			cmp.Compare(a.Title, b.Title),
		)
	})
	return out
}
