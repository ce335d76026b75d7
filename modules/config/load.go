// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Load reads and merges the system, global (~/.rebasekit.toml), and
// repo-local (repoDir/config.toml) layers into a single typed Config,
// local taking precedence over global over system — the same layering
// DisplaySystem/DisplayGlobal/DisplayLocal expose key by key, but
// decoded straight into the struct the rebase engine's Options layer
// consumes.
func Load(repoDir string) (*Config, error) {
	cfg := &Config{}
	paths := []string{configSystemPath(), expandPath("~/.rebasekit.toml")}
	if len(repoDir) != 0 {
		paths = append(paths, filepath.Join(repoDir, "config.toml"))
	}
	for _, path := range paths {
		var layer Config
		if _, err := toml.DecodeFile(path, &layer); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		cfg.Overwrite(&layer)
	}
	return cfg, nil
}
