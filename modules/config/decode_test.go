package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `[core]
hooksPath = "/etc/rebasekit/hooks"
editor = "vim"

[user]
name = "bob"
email = "bob@example.io"

[merge]
conflictStyle = "diff3"

[notes]
rewriteref = "refs/notes/rewritten"
`

func writeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config_test.toml")
	require.NoError(t, os.WriteFile(p, []byte(sampleTOML), 0644))
	return p
}

func TestDecode(t *testing.T) {
	var cc Config
	p := writeSample(t)
	fd, err := os.Open(p)
	require.NoError(t, err)
	defer fd.Close()
	_, err = toml.NewDecoder(fd).Decode(&cc)
	require.NoError(t, err)
	require.Equal(t, "bob", cc.User.Name)
	require.Equal(t, "diff3", cc.Merge.ConflictStyle)
}

func TestDecodeSections(t *testing.T) {
	p := writeSample(t)
	sections := make(Sections)
	_, err := toml.DecodeFile(p, &sections)
	require.NoError(t, err)
	d := &DisplayOptions{Writer: os.Stderr, Z: false}
	for k, s := range sections {
		if s == nil {
			continue
		}
		require.NoError(t, s.displayTo(d, k))
	}
}

func TestFilter(t *testing.T) {
	p := writeSample(t)
	sections := make(Sections)
	_, err := toml.DecodeFile(p, &sections)
	require.NoError(t, err)
	vals, err := sections.filterAll("user.name")
	require.NoError(t, err)
	require.Equal(t, []any{"bob"}, vals)
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(sampleTOML), 0644))
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "bob", cfg.User.Name)
}
