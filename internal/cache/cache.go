// Package cache stores rendered listing pages so repeated reads of the same
// page skip storage. Entries are derived data only; every mutation of the
// directory invalidates all of them at once.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/go-user-directory/internal/models"
)

// PageCache is implemented by RedisCache and Noop.
//
// A reader resolves the generation once and passes it to both Get and Set.
// A page computed while Invalidate ran is then stored under the old
// generation, where no later reader looks for it.
type PageCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string) (models.Page, bool, error)
	Set(ctx context.Context, gen int64, key string, page models.Page) error
	Invalidate(ctx context.Context) error
}

// PageKey identifies a listing or search page.
func PageKey(f models.SearchFilter, page, limit int) string {
	if f.IsEmpty() {
		return fmt.Sprintf("list:%d:%d", page, limit)
	}
	return fmt.Sprintf("search:%s:%s:%s:%d:%d",
		escape(strings.ToLower(f.Username)), escape(strings.ToLower(f.Email)), escape(f.Phone), page, limit)
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

func escape(s string) string {
	return keyEscaper.Replace(s)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Generation(context.Context) (int64, error) {
	return 0, nil
}

func (Noop) Get(context.Context, int64, string) (models.Page, bool, error) {
	return models.Page{}, false, nil
}

func (Noop) Set(context.Context, int64, string, models.Page) error {
	return nil
}

func (Noop) Invalidate(context.Context) error {
	return nil
}
