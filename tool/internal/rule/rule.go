// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package rule

import (
	"fmt"
)

// HookRule annotates a hook function from the rules file instead of a
// directive comment. For example, the following rule marks fake_root_uid as a
// hook of getuid:
//
//	hooks:
//		fake_root_uid:
//			origin: "getuid"
//
// Func overrides the function name when the rule key is only a label.
type HookRule struct {
	Name   string `json:"-"              yaml:"-"`
	Func   string `json:"func,omitempty" yaml:"func,omitempty"` // The hook function, defaults to the rule name
	Origin string `json:"origin"         yaml:"origin"`         // The symbol the hook replaces
}

func (r *HookRule) String() string {
	return fmt.Sprintf("%s->%s", r.GetFuncName(), r.Origin)
}

func (r *HookRule) GetFuncName() string {
	if r.Func != "" {
		return r.Func
	}
	return r.Name
}
