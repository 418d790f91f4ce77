package event

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var timeNow = time.Now

// UsecaseはPublisherにしか依存しない
type Publisher interface {
	Publish(ctx context.Context, t Type, payload any)
}

type Handler func(ctx context.Context, ev Event)

// プロセス内のイベントバス。
// ハンドラの失敗（panic含む）は発行側に波及させない。
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

func (b *Bus) Publish(ctx context.Context, t Type, payload any) {
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers[t]))
	copy(hs, b.handlers[t])
	b.mu.RUnlock()

	ev := Event{
		ID:      uuid.NewString(),
		Type:    t,
		At:      timeNow(),
		Payload: payload,
	}

	// リクエストが終わってもハンドラは生かす
	ctx = context.WithoutCancel(ctx)

	for _, h := range hs {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("event handler panic: type=%s id=%s: %v", ev.Type, ev.ID, r)
				}
			}()
			h(ctx, ev)
		}(h)
	}
}
