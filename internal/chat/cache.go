package chat

import (
	"container/list"
	"sync"
)

// rendered is what an AI reply turns into. It depends on nothing but the
// raw content, so two replies with the same text share one entry.
type rendered struct {
	markup      string
	collapsible bool
	speech      string
}

// ViewCache remembers rendered AI replies by raw content. History reloads
// re-render every stored reply, so the least recently shown ones are dropped
// once maxSize replies are held.
type ViewCache struct {
	mu      sync.Mutex
	maxSize int
	byText  map[string]*list.Element
	recent  *list.List // front is most recently shown
}

type viewEntry struct {
	content string
	view    rendered
}

const defaultViewCacheSize = 256

func NewViewCache(maxSize int) *ViewCache {
	if maxSize <= 0 {
		maxSize = defaultViewCacheSize
	}
	return &ViewCache{
		maxSize: maxSize,
		byText:  make(map[string]*list.Element),
		recent:  list.New(),
	}
}

// load returns the view for content, calling render on a miss. render runs
// without the lock held; two goroutines missing on the same reply both
// render it and the later result wins.
func (c *ViewCache) load(content string, render func(string) rendered) rendered {
	if v, ok := c.get(content); ok {
		return v
	}
	v := render(content)
	c.put(content, v)
	return v
}

func (c *ViewCache) get(content string) (rendered, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byText[content]
	if !ok {
		return rendered{}, false
	}
	c.recent.MoveToFront(elem)
	return elem.Value.(*viewEntry).view, true
}

func (c *ViewCache) put(content string, view rendered) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byText[content]; ok {
		elem.Value.(*viewEntry).view = view
		c.recent.MoveToFront(elem)
		return
	}
	for c.recent.Len() >= c.maxSize {
		c.dropLeastRecent()
	}
	c.byText[content] = c.recent.PushFront(&viewEntry{content: content, view: view})
}

// dropLeastRecent must be called with mu held.
func (c *ViewCache) dropLeastRecent() {
	oldest := c.recent.Back()
	if oldest == nil {
		return
	}
	c.recent.Remove(oldest)
	delete(c.byText, oldest.Value.(*viewEntry).content)
}

// Len reports how many replies are held.
func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byText)
}
