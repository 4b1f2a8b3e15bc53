package nnerrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorFormatsFieldAndReason(t *testing.T) {
	err := NewConfigError("layers[0]", "first layer must be input")
	assert.Equal(t, "layers[0]: first layer must be input", err.Error())
}

func TestConfigErrorWithoutFieldOmitsPrefix(t *testing.T) {
	err := NewConfigError("", "invalid JSON")
	assert.Equal(t, "invalid JSON", err.Error())
}

func TestShapeErrorReportsWantAndGot(t *testing.T) {
	err := NewShapeError("volume.index", []int{2, 2, 1}, []int{3, 3, 1})
	assert.Contains(t, err.Error(), "volume.index")
	assert.Contains(t, err.Error(), "[2 2 1]")
	assert.Contains(t, err.Error(), "[3 3 1]")
}

func TestStateErrorReturnsReason(t *testing.T) {
	err := NewStateError("network has no loss layer")
	assert.Equal(t, "network has no loss layer", err.Error())
}
