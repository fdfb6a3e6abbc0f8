// internal/dupcheck/coalesce.go
//
// Roster fetch coalescing.  Nickname and email checks of one session, and
// checks across sessions, often overlap; they can share one roster download.

package dupcheck

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/brunch/internal/member"
)

type coalesced struct {
	dir Directory
	sfg singleflight.Group
}

// Coalesce wraps dir so concurrent FetchAllUsers calls share one request.
// Directories with a dedicated existence query are returned unchanged.
func Coalesce(dir Directory) Directory {
	if _, ok := dir.(ExistenceChecker); ok {
		return dir
	}
	return &coalesced{dir: dir}
}

// FetchAllUsers implements Directory.  The shared request is detached from
// the first caller's cancellation; each caller still stops waiting when its
// own ctx ends.
func (c *coalesced) FetchAllUsers(ctx context.Context) (member.Roster, error) {
	ch := c.sfg.DoChan("roster", func() (any, error) {
		return c.dir.FetchAllUsers(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return member.Roster{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return member.Roster{}, res.Err
		}
		return res.Val.(member.Roster), nil
	}
}
