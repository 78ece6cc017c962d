package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug")
	l.Out = &buf

	l.WithField("checkout_id", "co-1").Debug("checkout transition")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "checkout transition", line["message"])
	assert.Equal(t, "debug", line["severity"])
	assert.Equal(t, "co-1", line["checkout_id"])
	assert.Contains(t, line, "timestamp")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, New("loud").Level)
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(Logger().Level.String())

	SetLevel("warn")
	assert.Equal(t, logrus.WarnLevel, Logger().Level)

	SetLevel("nonsense")
	assert.Equal(t, logrus.WarnLevel, Logger().Level)
}
