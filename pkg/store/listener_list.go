package store

type listenerID int

// Listener is called after every dispatch that changed the state.
type Listener func()

type listenerEntry struct {
	id       listenerID
	listener Listener
}

// listenerList keeps listeners in subscription order.
type listenerList struct {
	entries []listenerEntry
	nextID  listenerID
}

func newListenerList() *listenerList {
	return &listenerList{}
}

func (list *listenerList) addListener(listener Listener) listenerID {
	id := list.nextID
	list.nextID++
	list.entries = append(list.entries, listenerEntry{id: id, listener: listener})
	return id
}

// removeListener returns false if the listener was already removed.
func (list *listenerList) removeListener(id listenerID) bool {
	for idx, entry := range list.entries {
		if entry.id == id {
			// copy so snapshots handed out earlier stay intact
			entries := make([]listenerEntry, 0, len(list.entries)-1)
			entries = append(entries, list.entries[:idx]...)
			entries = append(entries, list.entries[idx+1:]...)
			list.entries = entries
			return true
		}
	}
	return false
}

func (list *listenerList) getNumListeners() int {
	return len(list.entries)
}

// snapshot returns the listeners to notify for one dispatch. Listeners
// added or removed while notifying take effect on the next dispatch.
func (list *listenerList) snapshot() []Listener {
	listeners := make([]Listener, len(list.entries))
	for idx, entry := range list.entries {
		listeners[idx] = entry.listener
	}
	return listeners
}
