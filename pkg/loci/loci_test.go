package loci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, Loci{Structure: "s"}.IsEmpty())
	assert.True(t, New("s", Element{Unit: 1}, Element{Unit: 2, Indices: []int{}}).IsEmpty())
	assert.False(t, Single("s", 0, 3).IsEmpty())
}

func TestSize(t *testing.T) {
	l := New("s", Element{Unit: 0, Indices: []int{1, 2}}, Element{Unit: 1, Indices: []int{7}})
	assert.Equal(t, 3, l.Size())
	assert.Equal(t, 1, Single("s", 0, 0).Size())
	assert.Equal(t, 0, Loci{}.Size())
}

func TestFirst(t *testing.T) {
	unit, index, ok := New("s", Element{Unit: 4}, Element{Unit: 5, Indices: []int{9, 11}}).First()
	require.True(t, ok)
	assert.Equal(t, UnitID(5), unit)
	assert.Equal(t, 9, index)

	_, _, ok = Loci{}.First()
	assert.False(t, ok)
}

func TestCloneSharesNoStorage(t *testing.T) {
	backing := []int{5}
	live := New("s", Element{Unit: 2, Indices: backing})

	captured := live.Clone()

	// Simulate the engine recycling its pooled buffer.
	backing[0] = 42
	live.Elements[0].Unit = 9

	assert.Equal(t, []int{5}, captured.Elements[0].Indices)
	assert.Equal(t, UnitID(2), captured.Elements[0].Unit)
}

func TestCloneSortsIndices(t *testing.T) {
	c := New("s", Element{Unit: 0, Indices: []int{3, 1, 3, 2}}).Clone()
	assert.Equal(t, []int{1, 2, 3}, c.Elements[0].Indices)
}

func TestAreEqual(t *testing.T) {
	a := New("s", Element{Unit: 1, Indices: []int{2}}, Element{Unit: 0, Indices: []int{4, 3}})
	b := New("s", Element{Unit: 0, Indices: []int{3, 4}}, Element{Unit: 3}, Element{Unit: 1, Indices: []int{2}})

	assert.True(t, AreEqual(a, b))
	assert.True(t, AreEqual(Single("s", 0, 1), Single("s", 0, 1)))
	assert.False(t, AreEqual(Single("s", 0, 1), Single("s", 0, 2)))
	assert.False(t, AreEqual(Single("s", 0, 1), Single("s", 1, 1)))
	assert.False(t, AreEqual(Single("s", 0, 1), Single("t", 0, 1)))
	assert.True(t, AreEqual(Loci{Structure: "s"}, New("s", Element{Unit: 1})))
}

func TestNormalizeMergesUnits(t *testing.T) {
	n := New("s", Element{Unit: 1, Indices: []int{5}}, Element{Unit: 1, Indices: []int{2, 5}}).Normalize()
	require.Len(t, n.Elements, 1)
	assert.Equal(t, []int{2, 5}, n.Elements[0].Indices)
}

func TestString(t *testing.T) {
	assert.Equal(t, "s[u0:[1]]", Single("s", 0, 1).String())
}
