package broker

import (
	"container/heap"
	"time"

	"github.com/nsyszr/msgbroker/pkg/model"
)

type scheduleItem struct {
	dueAt time.Time
	entry model.ScheduledMessage
	index int
}

type scheduleHeap []*scheduleItem

func (h scheduleHeap) Len() int { return len(h) }

func (h scheduleHeap) Less(i, j int) bool {
	if h[i].dueAt.Equal(h[j].dueAt) {
		return h[i].entry.ID < h[j].entry.ID
	}
	return h[i].dueAt.Before(h[j].dueAt)
}

func (h scheduleHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *scheduleHeap) Push(x any) {
	item := x.(*scheduleItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// scheduler keeps one heap item per scheduled message id, ordered by due
// time.
type scheduler struct {
	items map[string]*scheduleItem
	queue scheduleHeap
}

func newScheduler() *scheduler {
	return &scheduler{
		items: make(map[string]*scheduleItem),
		queue: scheduleHeap{},
	}
}

func (s *scheduler) len() int {
	return len(s.items)
}

// add inserts entry, replacing a pending entry with the same id.
func (s *scheduler) add(entry model.ScheduledMessage) {
	s.remove(entry.ID)
	item := &scheduleItem{dueAt: entry.DueAt(), entry: entry}
	s.items[entry.ID] = item
	heap.Push(&s.queue, item)
}

func (s *scheduler) get(id string) (model.ScheduledMessage, bool) {
	item, ok := s.items[id]
	if !ok {
		return model.ScheduledMessage{}, false
	}
	return item.entry, true
}

func (s *scheduler) remove(id string) (model.ScheduledMessage, bool) {
	item, ok := s.items[id]
	if !ok {
		return model.ScheduledMessage{}, false
	}
	delete(s.items, id)
	heap.Remove(&s.queue, item.index)
	return item.entry, true
}

func (s *scheduler) peek() *scheduleItem {
	if len(s.queue) == 0 {
		return nil
	}
	return s.queue[0]
}

// popDue removes and returns the soonest item if it is due at now.
func (s *scheduler) popDue(now time.Time) *scheduleItem {
	item := s.peek()
	if item == nil || item.dueAt.After(now) {
		return nil
	}
	heap.Pop(&s.queue)
	delete(s.items, item.entry.ID)
	return item
}

// entries returns all entries ordered by due time. With onlyFuture set,
// entries due at or before now are left out.
func (s *scheduler) entries(now time.Time, onlyFuture bool) []model.ScheduledMessage {
	sorted := make(scheduleHeap, 0, len(s.queue))
	for _, item := range s.queue {
		if onlyFuture && !item.dueAt.After(now) {
			continue
		}
		sorted = append(sorted, item)
	}
	sortItems(sorted)

	out := make([]model.ScheduledMessage, 0, len(sorted))
	for _, item := range sorted {
		out = append(out, item.entry)
	}
	return out
}
