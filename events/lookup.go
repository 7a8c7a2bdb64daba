package events

// Lookup is the outcome of a single-record read: found or not found.
// Only the gate constructs the found variant, after the caller has been
// authorized for the record's tenant.
type Lookup struct {
	event *Event
}

// NotFound is the lookup outcome for absent and unauthorized records alike.
func NotFound() Lookup {
	return Lookup{}
}

func found(e Event) Lookup {
	return Lookup{event: &e}
}

// Found reports whether the lookup carries a record.
func (l Lookup) Found() bool {
	return l.event != nil
}

// Event returns the record and true, or the zero Event and false.
func (l Lookup) Event() (Event, bool) {
	if l.event == nil {
		return Event{}, false
	}
	return *l.event, true
}

// ResultCount is 1 for a found lookup and 0 otherwise.
func (l Lookup) ResultCount() int {
	if l.event == nil {
		return 0
	}
	return 1
}
