package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	require.NoError(t, Load(filepath.Join(t.TempDir(), "missing.toml")))
	assert.Equal(t, "https://dardanova.com", Common.BaseURL)
	assert.Equal(t, "disk", Storage.Backend)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
[common]
debug = true
base_url = "http://localhost:8070"

[database]
dsn = "postgres://from-file"

[email]
contact_to = "office@example.com"
`), 0644)
	require.NoError(t, err)

	t.Setenv("DARDANOVA_DB_DSN", "postgres://from-env")
	require.NoError(t, Load(path))

	assert.True(t, Common.Debug)
	assert.Equal(t, "http://localhost:8070", Common.BaseURL)
	assert.Equal(t, "postgres://from-env", Database.DSN)
	assert.Equal(t, "office@example.com", Email.ContactTo)
}

func TestFlagOverrides(t *testing.T) {
	str := GenFlag("test.override.string", "default", "String flag")
	num := GenFlag("test.override.int", 5, "Int flag")
	on := GenFlag("test.override.bool", false, "Bool flag")

	applyOverrides(context.Background(), "test.override.string=hello,test.override.int=42,test.override.bool=true,bogus")

	assert.Equal(t, "hello", str.Value())
	assert.Equal(t, 42, num.Value())
	assert.True(t, on.Value())

	val, ok := GetFlagVal[int]("test.override.int")
	assert.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = GetFlagVal[string]("test.override.int")
	assert.False(t, ok)
}

func TestFlagsRoundTrip(t *testing.T) {
	flg := GenFlag("test.persist.port", 8070, "Port")
	SetFlagsPath(filepath.Join(t.TempDir(), "flags.json"))
	t.Cleanup(func() { SetFlagsPath("") })

	flg.Update(9000)
	flg.(*flag[int]).val = 1

	require.NoError(t, LoadFlags(context.Background()))
	assert.Equal(t, 9000, flg.Value())
}
