// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const ENV_REBASEKIT_CONFIG_SYSTEM = "REBASEKIT_CONFIG_SYSTEM"

var ErrKeyNotFound = errors.New("key not found")

// expandPath resolves a leading "~" to the current user's home directory;
// the teacher's equivalent (modules/strengthen.ExpandPath) is not part of
// this engine's dependency surface, so this inlines the one case it uses.
func expandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}

func configSystemPath() string {
	if p, ok := os.LookupEnv(ENV_REBASEKIT_CONFIG_SYSTEM); ok {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	prefix := filepath.Dir(exe)
	if filepath.Base(prefix) == "bin" {
		prefix = filepath.Dir(prefix)
	}
	return filepath.Join(prefix, "etc", "rebasekit.toml")
}

func LoadSystem() (*Config, error) {
	systemPath := configSystemPath()
	if len(systemPath) == 0 {
		return nil, os.ErrNotExist
	}
	var cfg Config
	if _, err := os.Stat(systemPath); err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(systemPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadGlobal() (*Config, error) {
	var cfg Config
	userPath := expandPath("~/.rebasekit.toml")
	if _, err := os.Stat(userPath); err != nil && os.IsNotExist(err) {
		return &cfg, nil
	}
	if _, err := toml.DecodeFile(userPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadBaseline() (*Config, error) {
	gc, err := LoadGlobal()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadSystem()
	if os.IsNotExist(err) {
		return gc, nil
	}
	if err != nil {
		return nil, err
	}
	cfg.Overwrite(gc)
	return cfg, nil
}

// Load resolves the layered config for a repository rooted at repoDir
// (system < global < repo-local "config.toml"), matching the precedence
// the rebase engine's Options resolution relies on.
func Load(repoDir string) (*Config, error) {
	cfg, err := LoadBaseline()
	if err != nil {
		return nil, err
	}
	if len(repoDir) == 0 {
		return cfg, nil
	}
	localPath := filepath.Join(repoDir, "config.toml")
	if _, err := os.Stat(localPath); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	var rc Config
	if _, err := toml.DecodeFile(localPath, &rc); err != nil {
		return nil, err
	}
	cfg.Overwrite(&rc)
	return cfg, nil
}
