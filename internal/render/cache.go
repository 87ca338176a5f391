package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// A TermRenderer must not be shared between goroutines, so replies are
// rendered with renderers borrowed from one pool per Options value.
type rendererCache struct {
	mu    sync.Mutex
	pools map[Options]*sync.Pool
}

var renderers = newRendererCache()

func newRendererCache() *rendererCache {
	return &rendererCache{pools: make(map[Options]*sync.Pool)}
}

func (c *rendererCache) pool(opts Options) *sync.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pools[opts]
	if !ok {
		p = &sync.Pool{}
		c.pools[opts] = p
	}
	return p
}

// acquire returns a pooled renderer or builds a new one
func (c *rendererCache) acquire(opts Options) (*glamour.TermRenderer, error) {
	if r, ok := c.pool(opts).Get().(*glamour.TermRenderer); ok && r != nil {
		return r, nil
	}
	return newTermRenderer(opts)
}

func (c *rendererCache) release(opts Options, r *glamour.TermRenderer) {
	if r != nil {
		c.pool(opts).Put(r)
	}
}

func (c *rendererCache) render(content string, opts Options) (string, error) {
	r, err := c.acquire(opts)
	if err != nil {
		return "", err
	}
	defer c.release(opts, r)
	return r.Render(content)
}

func (c *rendererCache) reset() {
	c.mu.Lock()
	c.pools = make(map[Options]*sync.Pool)
	c.mu.Unlock()
}

func (c *rendererCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pools)
}

// newTermRenderer builds a renderer. WithStylePath resolves built-in
// style names, "auto" included, before trying the value as a file.
func newTermRenderer(opts Options) (*glamour.TermRenderer, error) {
	glamourOpts := []glamour.TermRendererOption{
		glamour.WithStylePath(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		glamourOpts = append(glamourOpts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		glamourOpts = append(glamourOpts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(glamourOpts...)
}
