package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

var errPageFailed = errors.New("page failed")

func listing(total, size int) (pageFunc, *[]int) {
	var offsets []int

	return func(_ context.Context, limit, offset int) (page, error) {
		offsets = append(offsets, offset)

		current := page{total: total}
		for i := offset; i < min(offset+limit, offset+size, total); i++ {
			current.ids = append(current.ids, fmt.Sprint(i))
		}

		return current, nil
	}, &offsets
}

func TestPager_FetchAll(t *testing.T) {
	t.Parallel()

	t.Run("known total", func(t *testing.T) {
		t.Parallel()

		fetch, offsets := listing(250, 100)

		ids, err := newPager(alma.NopLogger{}, "test", fetch).fetchAll(context.Background(), 250)
		require.NoError(t, err)
		assert.Len(t, ids, 250)
		assert.Equal(t, []int{0, 100, 200}, *offsets)
	})

	t.Run("total read from the listing", func(t *testing.T) {
		t.Parallel()

		fetch, offsets := listing(5, 2)

		ids, err := newPager(alma.NopLogger{}, "test", fetch).fetchAll(context.Background(), unknownTotal)
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "1", "2", "3", "4"}, ids)
		assert.Equal(t, []int{0, 2, 4}, *offsets)
	})

	t.Run("empty listing", func(t *testing.T) {
		t.Parallel()

		fetch, offsets := listing(0, 100)

		ids, err := newPager(alma.NopLogger{}, "test", fetch).fetchAll(context.Background(), unknownTotal)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Equal(t, []int{0}, *offsets)
	})

	t.Run("zero total issues no call", func(t *testing.T) {
		t.Parallel()

		fetch, offsets := listing(0, 100)

		ids, err := newPager(alma.NopLogger{}, "test", fetch).fetchAll(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Empty(t, *offsets)
	})

	t.Run("error keeps collected ids", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(_ context.Context, _, _ int) (page, error) {
			calls++
			if calls == 2 {
				return page{}, errPageFailed
			}

			return page{ids: []string{"a", "b"}, total: 10}, nil
		}

		ids, err := newPager(alma.NopLogger{}, "test", fetch).fetchAll(context.Background(), unknownTotal)
		require.ErrorIs(t, err, errPageFailed)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
}
