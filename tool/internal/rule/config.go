// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package rule

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/util"
)

// Config is the content of the optional rules file of a package.
type Config struct {
	// Tag is the build tag constraining hook sources.
	Tag   string               `yaml:"tag,omitempty"`
	Hooks map[string]*HookRule `yaml:"hooks,omitempty"`
}

func Default() *Config {
	return &Config{
		Tag:   util.DefaultTag,
		Hooks: make(map[string]*HookRule),
	}
}

// LoadConfig reads the rules file at path. A missing file yields the default
// configuration.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, ex.Wrapf(err, "failed to open rules file %s", path)
	}
	cfg, err := ParseConfig(content)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to load rules file %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes a rules file. Unknown keys are rejected.
func ParseConfig(content []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ex.Wrapf(err, "failed to decode yaml")
	}
	if cfg.Tag == "" {
		cfg.Tag = util.DefaultTag
	}
	if cfg.Hooks == nil {
		cfg.Hooks = make(map[string]*HookRule)
	}
	seen := make(map[string]string, len(cfg.Hooks))
	for name, r := range cfg.Hooks {
		if r == nil {
			return nil, ex.Newf("hook rule %q is empty", name)
		}
		r.Name = name
		if prev, dup := seen[r.GetFuncName()]; dup {
			return nil, ex.Newf("hook rules %q and %q target the same function %s",
				prev, name, r.GetFuncName())
		}
		seen[r.GetFuncName()] = name
	}
	return cfg, nil
}

// Rules returns all hook rules ordered by name.
func (c *Config) Rules() []*HookRule {
	rules := make([]*HookRule, 0, len(c.Hooks))
	for _, r := range c.Hooks {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}

// RuleFor returns the rule annotating the function funcName, if any.
func (c *Config) RuleFor(funcName string) *HookRule {
	for _, r := range c.Hooks {
		if r.GetFuncName() == funcName {
			return r
		}
	}
	return nil
}
