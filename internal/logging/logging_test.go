package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetDebugTogglesLevel(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, logrus.DebugLevel, L().GetLevel())

	SetDebug(false)
	assert.Equal(t, logrus.InfoLevel, L().GetLevel())
}
