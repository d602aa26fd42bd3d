// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// defaultPageMultiplier sizes the default page as a multiple of the
// platform's native memory page. Anything much smaller leaves address
// space holes, since operating systems hand out address space in 64 KiB
// granules.
const defaultPageMultiplier = 16

// Config is the process-wide configuration surface. All fields default
// to off/unset; production runs normally never set any of them.
type Config struct {
	// PageSize overrides the default page size. Zero keeps the platform
	// default of defaultPageMultiplier native pages.
	PageSize int `yaml:"page_size"`

	// BypassHostAllocator forces the system heap even when a host
	// memory manager is supplied, for standalone configurations.
	BypassHostAllocator bool `yaml:"bypass_host_allocator"`

	// InjectFaults arms a probe fault policy on every new arena, for
	// diagnostic runs that stress out-of-memory handling.
	InjectFaults bool `yaml:"inject_faults"`
}

// LoadConfig reads a YAML configuration file. A missing file is not an
// error and yields the zero configuration.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Process-wide static state. Set once by Startup before any arena
// exists and treated as immutable until Shutdown.
var proc struct {
	mu       sync.Mutex
	cfg      Config
	pageSize int
}

// Startup installs the process configuration. Call it at most once,
// before the first arena is constructed; calling it again after arenas
// exist gives unspecified page sizing for those arenas.
func Startup(cfg Config) {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	proc.cfg = cfg
	proc.pageSize = 0
}

// Shutdown drains the process pool and resets the configuration to its
// zero state.
func Shutdown() {
	shutdownDefaultPool()

	proc.mu.Lock()
	defer proc.mu.Unlock()
	proc.cfg = Config{}
	proc.pageSize = 0
}

// DefaultPageSize returns the process-wide page size: the configured
// override if any, else defaultPageMultiplier native memory pages.
func DefaultPageSize() int {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if proc.pageSize == 0 {
		if proc.cfg.PageSize > 0 {
			proc.pageSize = proc.cfg.PageSize
		} else {
			proc.pageSize = defaultPageMultiplier * os.Getpagesize()
		}
	}
	return proc.pageSize
}

// BypassHostAllocator reports whether page storage must come from the
// system heap even when a host memory manager is available.
func BypassHostAllocator() bool {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	return proc.cfg.BypassHostAllocator
}

// FaultInjectionEnabled reports whether new arenas should carry a probe
// fault policy.
func FaultInjectionEnabled() bool {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	return proc.cfg.InjectFaults
}
