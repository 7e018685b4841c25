package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMd5ThenHex(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Md5ThenHex(nil))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Md5ThenHex([]byte("abc")))
}

func TestHashUUID(t *testing.T) {
	a := HashUUID(map[string]string{"k": "v"})
	b := HashUUID(map[string]string{"k": "v"})
	c := HashUUID(map[string]string{"k": "w"})

	assert.NotEmpty(t, a)
	assert.Equal(t, a, b, "same value hashes to the same uuid")
	assert.NotEqual(t, a, c)
}
