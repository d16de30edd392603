package sourcemap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsNearestAtOrBefore(t *testing.T) {
	var m Map

	m.Push(0, 0)
	m.Push(10, 4)
	m.Push(20, 9)
	m.Commit("x.candor", "source text", 30)

	e, ok := m.Get(15)
	require.True(t, ok)
	require.Equal(t, uint32(10), e.JITOffset)
	require.Equal(t, uint32(4), e.Offset)
	require.Equal(t, "x.candor", e.Filename)

	e, ok = m.Get(25)
	require.True(t, ok)
	require.Equal(t, uint32(20), e.JITOffset)
}

func TestGetBeforeFirstEntry(t *testing.T) {
	var m Map

	m.Push(10, 0)

	_, ok := m.Get(5)
	require.False(t, ok)
}

func TestGetEmptyMap(t *testing.T) {
	var m Map

	_, ok := m.Get(0)
	require.False(t, ok)
}

func TestPushOutOfOrderStillResolves(t *testing.T) {
	var m Map

	m.Push(20, 9)
	m.Push(0, 0)
	m.Push(10, 4)

	e, ok := m.Get(12)
	require.True(t, ok)
	require.Equal(t, uint32(10), e.JITOffset)

	require.Len(t, m.Entries(), 3)
}
