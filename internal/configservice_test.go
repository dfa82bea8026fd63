package internal

import (
	"path/filepath"
	"testing"

	"github.com/quickcourt/quickcourt/internal/ctxhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func configTestContext() context.Context {
	return context.WithValue(context.Background(), ctxhelper.KeyLogger, testLogger())
}

func TestConfigRoundTrip(t *testing.T) {
	ctx := configTestContext()
	filename := filepath.Join(t.TempDir(), "config.json")

	cs := NewConfigService(filename)
	conf := cs.GetConfig(ctx)
	conf.ListenAddress = ":6001"
	conf.DefaultUser.Name = "keeper"
	cs.(*configService).config = &conf
	require.NoError(t, cs.Write(ctx))

	other := NewConfigService(filename)
	require.NoError(t, other.Load(ctx))
	loaded := other.GetConfig(ctx)
	assert.Equal(t, ":6001", loaded.ListenAddress)
	assert.Equal(t, "keeper", loaded.DefaultUser.Name)
}

func TestConfigDefaultsWithoutFile(t *testing.T) {
	ctx := configTestContext()

	cs := NewConfigService(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, cs.Load(ctx))

	conf := cs.GetConfig(ctx)
	assert.Equal(t, ":5001", conf.ListenAddress)
	assert.Equal(t, "admin", conf.DefaultUser.Name)
	assert.NotEmpty(t, conf.DataDir)
}

func TestConfigEnvironmentOverrides(t *testing.T) {
	ctx := configTestContext()
	t.Setenv("QUICKCOURT_LISTEN_ADDR", ":7777")
	t.Setenv("QUICKCOURT_ADMIN_USER", "superuser")

	cs := NewConfigService(filepath.Join(t.TempDir(), "missing.json"))
	conf := cs.GetConfig(ctx)
	assert.Equal(t, ":7777", conf.ListenAddress)
	assert.Equal(t, "superuser", conf.DefaultUser.Name)
}
