package broker

// topicDirectory is the append-only set of topic names ever subscribed to.
// Names keep their insertion order.
type topicDirectory struct {
	names []string
	index map[string]struct{}
}

func newTopicDirectory() *topicDirectory {
	return &topicDirectory{
		names: make([]string, 0),
		index: make(map[string]struct{}),
	}
}

// add returns true if name was not known before.
func (d *topicDirectory) add(name string) bool {
	if _, ok := d.index[name]; ok {
		return false
	}
	d.index[name] = struct{}{}
	d.names = append(d.names, name)
	return true
}

func (d *topicDirectory) list() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}
