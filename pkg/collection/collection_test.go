package collection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/storefront/pkg/collection"
)

type item struct {
	key  string
	rank int
}

func TestSortByIsStable(t *testing.T) {
	in := []item{{"a", 2}, {"b", 1}, {"c", 2}, {"d", 1}}
	out := collection.SortBy(in, func(x, y item) bool { return x.rank < y.rank })

	assert.Equal(t, []string{"b", "d", "a", "c"}, collection.Map(out, func(i item) string { return i.key }))
}

func TestPaginate(t *testing.T) {
	s := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, collection.Paginate(s, 0, 2))
	assert.Equal(t, []int{5}, collection.Paginate(s, 3, 2))
	assert.Empty(t, collection.Paginate(s, 4, 2))
	assert.Empty(t, collection.Paginate(s, 1, 0))
}

func TestHelpers(t *testing.T) {
	s := []int{3, 1, 3, 2, 1}

	assert.Equal(t, []int{3, 1, 2}, collection.Unique(s))
	assert.Equal(t, []int{3, 3}, collection.Filter(s, func(n int) bool { return n == 3 }))
	assert.Equal(t, []int{3, 1}, collection.Take(s, 2))
	assert.Equal(t, s, collection.Take(s, 0))

	v, ok := collection.First(s, func(n int) bool { return n < 3 })
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = collection.First(s, func(n int) bool { return n > 9 })
	assert.False(t, ok)

	byKey := collection.KeyBy([]item{{"a", 1}, {"a", 2}}, func(i item) string { return i.key })
	assert.Equal(t, 2, byKey["a"].rank)
}
