package sl_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	attr := sl.Err(errors.New("something went wrong"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.NotPanics(t, func() {
		attr := sl.Err(nil)
		assert.Equal(t, "", attr.Value.String())
	})
}

func TestKey(t *testing.T) {
	attr := sl.Key("bf_messages")

	assert.Equal(t, "key", attr.Key)
	assert.Equal(t, "bf_messages", attr.Value.String())
}

func TestNew_LevelByEnv(t *testing.T) {
	assert.True(t, sl.New(sl.EnvLocal).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, sl.New(sl.EnvProd).Enabled(context.Background(), slog.LevelDebug))
}
