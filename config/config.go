// Package config implements the yinetd configuration language: an
// xinetd-style block grammar with a `default { ... }` block and any
// number of `service NAME { ... }` blocks. Parsing never touches a
// logger or a filesystem path beyond the one it is asked to read — the
// caller (cmd/yinetd) owns log-sink setup and default search paths.
package config

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/yinetd/yinetd/internal/errs"
)

// Config is an ordered, validated set of services. Insertion order is
// preserved and observable.
type Config struct {
	services []*Service
	byName   map[string]int
}

// Services returns the read-only ordered list of services.
func (c *Config) Services() []*Service {
	return c.services
}

// HasService reports whether name is a configured service, in O(1).
func (c *Config) HasService(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Service looks up a service by name.
func (c *Config) Service(name string) (*Service, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.services[idx], true
}

// ParseString parses config text without touching the filesystem; used
// directly by tests and indirectly by LoadFile.
func ParseString(src string) (*Config, error) {
	blocks, err := parseFile(src)
	if err != nil {
		return nil, err
	}
	return aggregate(blocks)
}

// aggregate walks top-level blocks in document order. It is a
// two-pass implementation: the default block (wherever it appears in
// the file) is collected first, then applied to every service
// regardless of position. A second default block is rejected.
func aggregate(blocks []block) (*Config, error) {
	var defaultOpt *ServiceOption
	var sawDefault bool

	for _, b := range blocks {
		if b.kind != "default" {
			continue
		}
		if sawDefault {
			return nil, errs.NewParse("duplicate default block", b.span)
		}
		opt, err := collectOptions(b)
		if err != nil {
			return nil, err
		}
		defaultOpt = opt
		sawDefault = true
	}
	if defaultOpt == nil {
		defaultOpt = &ServiceOption{}
	}

	cfg := &Config{byName: make(map[string]int)}

	for _, b := range blocks {
		if b.kind != "service" {
			continue
		}

		opt, err := collectOptions(b)
		if err != nil {
			return nil, err
		}

		merged := mergeDefaults(opt, defaultOpt)

		svc, err := materialize(b.name, len(cfg.services), merged, b.span)
		if err != nil {
			return nil, err
		}

		if _, dup := cfg.byName[svc.name]; dup {
			return nil, errs.NewDuplicateService(svc.name, b.nameSpan)
		}

		cfg.byName[svc.name] = len(cfg.services)
		cfg.services = append(cfg.services, svc)
	}

	return cfg, nil
}

// Load parses config text read from r. path is used only to decorate
// any resulting error with a file location; it is not opened here.
func Load(r io.Reader, path string) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.NewIO("failed to read config", err)
	}

	cfg, err := ParseString(string(data))
	if err != nil {
		if e, ok := err.(*errs.Error); ok {
			return nil, e.WithPath(path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFile opens and parses path, logging at debug level which path
// was used. The logger is injected, never constructed here.
func LoadFile(path string, log *zap.Logger) (*Config, error) {
	log.Debug("loading config", zap.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewConfig("failed to open config file", err)
	}
	defer f.Close()

	return Load(f, path)
}
