package oaiharvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNext(t *testing.T) {
	p := newPage([]string{"a", "b", "c"}, nil, ResponseInfo{})
	assert.Equal(t, 3, p.Count())
	for _, want := range []string{"a", "b", "c"} {
		got, ok := p.Next()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	got, ok := p.Next()
	assert.False(t, ok)
	assert.Equal(t, "", got)

	// previous after the end returns the last item again
	got, ok = p.Previous()
	assert.True(t, ok)
	assert.Equal(t, "c", got)
	got, _ = p.Previous()
	assert.Equal(t, "b", got)
	got, _ = p.Previous()
	assert.Equal(t, "a", got)
	got, ok = p.Previous()
	assert.True(t, ok)
	assert.Equal(t, "a", got)

	p.Reset()
	got, _ = p.Next()
	assert.Equal(t, "a", got)
}

func TestPageEmpty(t *testing.T) {
	p := newPage[int](nil, nil, ResponseInfo{})
	_, ok := p.Next()
	assert.False(t, ok)
	_, ok = p.Previous()
	assert.False(t, ok)
	assert.False(t, p.HasMore())
	assert.True(t, newPage([]int{1}, &Cursor{Token: "x"}, ResponseInfo{}).HasMore())
}

func TestPagePositionsIndependent(t *testing.T) {
	p := newPage([]int{1, 2}, nil, ResponseInfo{})
	q := newPage([]int{3, 4}, nil, ResponseInfo{})
	p.Next()
	p.Next()
	v, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
