package crawler

// frontier is the FIFO queue of URLs waiting to be visited. It may hold
// duplicates; the visited set filters them when they are popped.
type frontier struct {
	items []string
}

func newFrontier(seed string) *frontier {
	return &frontier{items: []string{seed}}
}

func (f *frontier) push(u string) {
	f.items = append(f.items, u)
}

// pop removes and returns the oldest URL. It must not be called on an
// empty frontier.
func (f *frontier) pop() string {
	u := f.items[0]
	f.items[0] = ""
	f.items = f.items[1:]
	return u
}

func (f *frontier) len() int {
	return len(f.items)
}

// visitedSet holds fragment-stripped URLs that have been dequeued.
// It only ever grows. Comparison is by exact string.
type visitedSet map[string]struct{}

func (v visitedSet) add(u string) {
	v[u] = struct{}{}
}

func (v visitedSet) has(u string) bool {
	_, ok := v[u]
	return ok
}
