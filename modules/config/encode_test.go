package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{User: User{Name: "bob", Email: "bob@example.io"}}
	require.NoError(t, Encode(dir, cfg))

	var rc Config
	_, err := toml.DecodeFile(filepath.Join(dir, "config.toml"), &rc)
	require.NoError(t, err)
	require.Equal(t, "bob", rc.User.Name)
}

func TestUpdateLocal(t *testing.T) {
	dir := t.TempDir()
	values := map[string]any{
		"user.email": "bob@example.io",
		"user.name":  "bob",
	}
	require.NoError(t, UpdateLocal(dir, &UpdateOptions{Values: values}))

	values["user.name"] = "Staff"
	require.NoError(t, UpdateLocal(dir, &UpdateOptions{Values: values}))

	sections := make(Sections)
	_, err := toml.DecodeFile(filepath.Join(dir, "config.toml"), &sections)
	require.NoError(t, err)
	v, err := sections.filter("user.name")
	require.NoError(t, err)
	require.Equal(t, "Staff", v)
}

func TestEncodeCore(t *testing.T) {
	s := &Core{Editor: "vim"}
	require.NoError(t, toml.NewEncoder(os.Stderr).Encode(s))
}

func TestUpdateKey(t *testing.T) {
	p := writeSample(t)
	sections := make(Sections)
	_, err := toml.DecodeFile(p, &sections)
	require.NoError(t, err)
	_, err = sections.updateKey("core.hooksPath", "/tmp/hooks", true)
	require.NoError(t, err)
	v, err := sections.filter("core.hooksPath")
	require.NoError(t, err)
	require.Equal(t, "/tmp/hooks", v)
}

func TestUnsetLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(sampleTOML), 0644))
	require.NoError(t, UnsetLocal(dir, "user.name"))
	sections := make(Sections)
	_, err := toml.DecodeFile(filepath.Join(dir, "config.toml"), &sections)
	require.NoError(t, err)
	_, err = sections.filter("user.name")
	require.ErrorIs(t, err, ErrKeyNotFound)
}
