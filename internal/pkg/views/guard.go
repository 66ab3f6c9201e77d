package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/YaoKonate/SikaMarket/app/models"
	"github.com/YaoKonate/SikaMarket/app/repository"
	"github.com/YaoKonate/SikaMarket/internal/pkg/cache"
	"github.com/YaoKonate/SikaMarket/internal/pkg/coalesce"
	"github.com/YaoKonate/SikaMarket/internal/pkg/metrics/counter"
)

// ErrContentNotFound is returned when the viewed content does not exist.
var ErrContentNotFound = errors.New("content not found")

const seenKeyTTL = 10 * time.Minute

// Counter abstracts the view-counter increment so the buffered Redis
// implementation can be swapped out in tests.
type Counter interface {
	Add(contentID uint) error
}

// BufferedCounter feeds the Redis pending-counter hash that the periodic
// flusher drains into the contents table. When Redis is down it falls back
// to a direct database increment so no created view row loses its count.
type BufferedCounter struct {
	Contents repository.ContentRepository
}

func (c BufferedCounter) Add(contentID uint) error {
	if err := counter.AddContentView(contentID); err != nil {
		log.Printf("buffered view counter unavailable, incrementing directly: %v", err)
		return c.Contents.IncrementViewCount(contentID)
	}
	return nil
}

// Guard records at most one view per (user, content) pair, forever. The
// durable unique index on content_views is the only correctness mechanism;
// the Redis seen-key and the lookup coalescer are latency optimizations that
// may vanish at any time without affecting the guarantee.
type Guard struct {
	contents repository.ContentRepository
	counter  Counter
	lookups  *coalesce.Coalescer
}

// NewGuard creates a view guard. The coalescer may be nil to disable
// lookup deduplication (e.g. in tests).
func NewGuard(contents repository.ContentRepository, counter Counter, lookups *coalesce.Coalescer) *Guard {
	return &Guard{
		contents: contents,
		counter:  counter,
		lookups:  lookups,
	}
}

// RecordView inserts the dedup row and bumps the counter if and only if the
// insert actually created a new row. Repeated and concurrent calls for the
// same pair return incremented=false without touching the counter.
func (g *Guard) RecordView(ctx context.Context, userID, contentID uint) (bool, error) {
	_ = ctx
	if _, err := g.getContent(contentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: id %d", ErrContentNotFound, contentID)
		}
		return false, err
	}

	// Fast path: a short-lived Redis marker absorbs repeat views without a
	// database round trip. The marker is written only after the durable
	// insert has succeeded, so a failed insert never leaves a marker behind
	// that would mask the retry. Cache errors are ignored — the unique index
	// below is what actually decides.
	seenKey := fmt.Sprintf("views:seen:%d:%d", userID, contentID)
	if val, err := cache.Get(seenKey); err == nil && val != "" {
		return false, nil
	}

	created, err := g.contents.CreateViewIfNotExists(&models.ContentView{
		UserID:    userID,
		ContentID: contentID,
	})
	if err != nil {
		return false, err
	}
	_ = cache.Set(seenKey, 1, seenKeyTTL)
	if !created {
		return false, nil
	}

	if err := g.counter.Add(contentID); err != nil {
		return true, err
	}
	return true, nil
}

// getContent resolves the content row, deduplicating identical concurrent
// lookups through the coalescer when one is configured.
func (g *Guard) getContent(contentID uint) (*models.Content, error) {
	if g.lookups == nil {
		return g.contents.GetByID(contentID)
	}
	v, err := g.lookups.Do(fmt.Sprintf("content:%d", contentID), func() (interface{}, error) {
		return g.contents.GetByID(contentID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Content), nil
}
