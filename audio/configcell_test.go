package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCellEmpty(t *testing.T) {
	cell := NewConfigCell[int]()
	_, epoch, ok := cell.Load()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), epoch)
}

// TestConfigCellEpochs tests that each publish bumps the epoch so a
// reader can detect renegotiation.
func TestConfigCellEpochs(t *testing.T) {
	cell := NewConfigCell[int]()

	assert.Equal(t, uint64(1), cell.Publish(10))
	v, epoch, ok := cell.Load()
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, uint64(1), epoch)

	assert.Equal(t, uint64(2), cell.Publish(20))
	v, epoch, ok = cell.Load()
	require.True(t, ok)
	assert.Equal(t, 20, v)
	assert.Equal(t, uint64(2), epoch)
}

// TestConfigCellInvalidate tests that teardown clears the cell and a
// later publish starts over at epoch 1.
func TestConfigCellInvalidate(t *testing.T) {
	cell := NewConfigCell[int]()
	cell.Publish(10)

	cell.Invalidate()
	_, _, ok := cell.Load()
	assert.False(t, ok)

	assert.Equal(t, uint64(1), cell.Publish(30))
}
