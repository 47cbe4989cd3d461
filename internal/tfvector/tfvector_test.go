package tfvector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAccumulates(t *testing.T) {
	tf := New()
	tf.Add(1, 2)
	tf.Add(1, 3)
	tf.Add(2, 1)

	assert.Equal(t, uint32(5), tf.Counts[1])
	assert.Equal(t, uint32(1), tf.Counts[2])
	assert.Equal(t, uint64(6), tf.Total)
	assert.Equal(t, 2, tf.Len())
}

func TestFromTermIDs(t *testing.T) {
	tf := FromTermIDs([]uint16{5, 5, 7})
	assert.Equal(t, uint32(2), tf.Counts[5])
	assert.Equal(t, uint32(1), tf.Counts[7])
	assert.Equal(t, uint64(3), tf.Total)
}

func TestZeroValueAddInitializes(t *testing.T) {
	var tf TF
	tf.Add(3, 1)
	assert.Equal(t, uint32(1), tf.Counts[3])
}
