package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.NoError(t, Combine(nil, nil))

	first := errors.New("first")
	second := errors.New("second")
	err := Combine(first, nil, second)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestNewErrorf(t *testing.T) {
	err := NewErrorf("port %d invalid", 70000)
	assert.EqualError(t, err, "port 70000 invalid")
}

func TestRecover(t *testing.T) {
	assert.NotPanics(t, func() {
		defer Recover("job")
		panic("boom")
	})
}
