package inmemory

import (
	"context"
	"sync"

	"blogapi/internal/model"
	"blogapi/internal/service"
	"blogapi/pkg/logger"
)

// CommentBus fans new comments out to the listeners of their post.
// Slow listeners miss comments instead of blocking the publisher.
type CommentBus struct {
	mu   sync.RWMutex
	subs map[int64]map[chan model.Comment]context.CancelFunc
	buf  int
}

func New(buf int) *CommentBus {
	if buf <= 0 {
		buf = 64
	}
	return &CommentBus{
		subs: make(map[int64]map[chan model.Comment]context.CancelFunc),
		buf:  buf,
	}
}

var _ service.CommentBus = (*CommentBus)(nil)

// Subscribe registers a listener for postID. The channel is closed once ctx
// is done or CloseListeners is called for the post.
func (b *CommentBus) Subscribe(ctx context.Context, postID int64) (<-chan model.Comment, error) {
	ch := make(chan model.Comment, b.buf)
	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.subs[postID] == nil {
		b.subs[postID] = make(map[chan model.Comment]context.CancelFunc)
	}
	b.subs[postID][ch] = cancel
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if set := b.subs[postID]; set != nil {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, postID)
			}
		}
		b.mu.Unlock()
		cancel()
		close(ch)
	}()

	return ch, nil
}

func (b *CommentBus) Publish(ctx context.Context, postID int64, c model.Comment) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[postID] {
		select {
		case ch <- c:
		default:
			logger.FromContext(ctx).Debug("comment listener is behind, dropping", "post_id", postID, "comment_id", c.ID)
		}
	}
	return nil
}

// CloseListeners ends every subscription of postID.
func (b *CommentBus) CloseListeners(postID int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, cancel := range b.subs[postID] {
		cancel()
	}
}

// Listeners reports how many subscriptions are open for postID.
func (b *CommentBus) Listeners(postID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[postID])
}
