package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedErr struct{ code string }

func (e codedErr) Error() string { return "coded" }
func (e codedErr) Code() string  { return e.code }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "RECORD_NOT_FOUND", deriveErrorCode(fmt.Errorf("wrap: %w", codedErr{"record not found"})))
	assert.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Equal(t, "WRAPERROR", deriveErrorCode(fmt.Errorf("w: %w", errors.New("x"))))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "unknown", normalizeHandlerName("  "))
	assert.Equal(t, "kitchen", normalizeHandlerName("/kitchen"))
	assert.Equal(t, "mark_mode", normalizeHandlerName("Mark Mode"))
}
