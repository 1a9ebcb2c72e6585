// Package env composes the environment handed to the spawned worker.
package env

import (
	"os"
	"sort"
	"strings"
)

type Var map[string]string

// Env merges an optional OS-environment base with configured overrides.
type Env struct {
	Var   Var // configured variables (K->V)
	useOS bool
	base  Var // cached OS environment
}

func New() *Env {
	return &Env{Var: make(Var)}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			if k == "" {
				continue
			}
			base[k] = kv[i+1:]
		}
	}
	e.base = base
	e.useOS = true
}

// Set sets a configured variable K=V.
func (e *Env) Set(k, v string) {
	if e.Var == nil {
		e.Var = make(Var)
	}
	e.Var[k] = v
}

// SetPairs applies a list of "K=V" strings; entries without '=' are skipped.
func (e *Env) SetPairs(kvs []string) {
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i > 0 {
			e.Set(kv[:i], kv[i+1:])
		}
	}
}

// Merge composes the final environment in "K=V" form. The OS environment
// (when enabled via FromOS) is the base, configured variables override it,
// and extra pairs override last. ${VAR} references are expanded against the
// composed map, without recursion.
func (e *Env) Merge(extra []string) []string {
	m := make(Var)
	if e.useOS {
		for k, v := range e.base {
			m[k] = v
		}
	}
	for k, v := range e.Var {
		m[k] = v
	}
	for _, kv := range extra {
		if i := strings.IndexByte(kv, '='); i > 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}

	lookup := func(k string) string { return m[k] }
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(m))
	for _, k := range keys {
		out = append(out, k+"="+os.Expand(m[k], lookup))
	}
	return out
}
