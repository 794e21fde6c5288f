package message

// LabelSet is a collection of labels deduplicated by display name.
// Insertion order is preserved for iteration.
type LabelSet struct {
	byName map[string]*Label
	order  []*Label
}

// NewLabelSet returns an empty label set.
func NewLabelSet() *LabelSet {
	return &LabelSet{byName: make(map[string]*Label)}
}

// Has reports whether a label with the given display name is present.
func (s *LabelSet) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Get returns the label with the given display name, or nil.
func (s *LabelSet) Get(name string) *Label {
	return s.byName[name]
}

// Add inserts the label unless a label with the same display name is
// already present, in which case the set is unchanged.
func (s *LabelSet) Add(l *Label) {
	if _, ok := s.byName[l.Name]; ok {
		return
	}
	s.byName[l.Name] = l
	s.order = append(s.order, l)
}

// All returns the labels in insertion order.  The returned slice is
// shared; callers must not modify it.
func (s *LabelSet) All() []*Label {
	return s.order
}

// Len returns the number of distinct label names in the set.
func (s *LabelSet) Len() int {
	return len(s.order)
}

// List is an ordered sequence of synchronized messages.
type List struct {
	msgs []*Message
}

// NewList returns an empty message list.
func NewList() *List {
	return &List{}
}

// Add appends a message.
func (l *List) Add(m *Message) {
	l.msgs = append(l.msgs, m)
}

// All returns the messages in insertion order.  The returned slice is
// shared; callers must not modify it.
func (l *List) All() []*Message {
	return l.msgs
}

// Len returns the number of messages in the list.
func (l *List) Len() int {
	return len(l.msgs)
}

// MaxHistoryID returns the largest history identifier among the
// messages, with a floor of 1 for an empty list.
func (l *List) MaxHistoryID() uint64 {
	max := uint64(1)
	for _, m := range l.msgs {
		if m.HistoryID > max {
			max = m.HistoryID
		}
	}
	return max
}
