package duphash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketKeyIsStablePerHash(t *testing.T) {
	idx := &Index{prefix: "run1"}
	assert.Equal(t, "run1:bucket:1a", idx.bucketKey(0x1a))
	assert.Equal(t, idx.bucketKey(42), idx.bucketKey(42))
	assert.NotEqual(t, idx.bucketKey(1), idx.bucketKey(2))
}
