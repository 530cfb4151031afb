package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
)

// Reserved profile tables in configuration files.
const (
	TableDefault = "default"
	TableGlobal  = "global"
)

// ErrMissing is returned when a key is not present in any layer.
var ErrMissing = errors.New("config: key not found")

// Source is the read side of a profile-aware configuration. Components
// receive a Source at ignition and pull the keys they care about.
type Source interface {
	// Profile is the name of the selected profile ("debug", "release", ...)
	Profile() string

	// Lookup returns the raw value stored under key, if any layer set it.
	Lookup(key string) (interface{}, bool)
}

// reservedEnv are bootstrap variables that never become configuration keys.
var reservedEnv = map[string]bool{
	"profile":   true,
	"config":    true,
	"log_level": true,
	"log_dev":   true,
}

// Layered is a flat key/value configuration assembled from successive
// layers. Later layers override earlier ones key by key. Keys are case
// insensitive.
type Layered struct {
	mu      sync.RWMutex
	profile string
	values  map[string]interface{}
}

var _ Source = (*Layered)(nil)

// NewLayered creates an empty configuration for the given profile.
func NewLayered(profile string) *Layered {
	return &Layered{
		profile: profile,
		values:  make(map[string]interface{}),
	}
}

// Profile returns the selected profile name.
func (l *Layered) Profile() string {
	return l.profile
}

// Lookup returns the value stored under key.
func (l *Layered) Lookup(key string) (interface{}, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.values[normalize(key)]
	return v, ok
}

// Len returns the number of keys currently set.
func (l *Layered) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.values)
}

// Set stores a single value, overriding any earlier layer.
func (l *Layered) Set(key string, value interface{}) *Layered {
	l.mu.Lock()
	l.values[normalize(key)] = value
	l.mu.Unlock()
	return l
}

// Merge layers values on top of the current configuration.
func (l *Layered) Merge(values map[string]interface{}) *Layered {
	l.mu.Lock()
	for k, v := range values {
		l.values[normalize(k)] = v
	}
	l.mu.Unlock()
	return l
}

// MergeProfiles applies a document made of profile tables. Top-level scalar
// keys and the [default] table apply first, then the table named after the
// selected profile, then [global].
func (l *Layered) MergeProfiles(doc map[string]interface{}) *Layered {
	loose := make(map[string]interface{})
	tables := make(map[string]map[string]interface{})

	for k, v := range doc {
		if table, ok := asTable(v); ok {
			tables[normalize(k)] = table
			continue
		}
		loose[k] = v
	}

	l.Merge(loose)
	for _, name := range []string{TableDefault, normalize(l.profile), TableGlobal} {
		if table, ok := tables[name]; ok {
			l.Merge(table)
		}
	}
	return l
}

// MergeTOML parses a TOML document and applies it with MergeProfiles.
func (l *Layered) MergeTOML(data []byte) error {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	l.MergeProfiles(doc)
	return nil
}

// MergeYAML parses a YAML document and applies it with MergeProfiles.
func (l *Layered) MergeYAML(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	l.MergeProfiles(doc)
	return nil
}

// MergeFile reads a TOML or YAML file, chosen by extension. The returned
// error wraps fs.ErrNotExist when the file is missing.
func (l *Layered) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return l.MergeYAML(data)
	case ".toml", "":
		return l.MergeTOML(data)
	default:
		return fmt.Errorf("unsupported config file type: %s", path)
	}
}

// MergeEnv applies environment entries of the form PREFIX_KEY=value as key.
// Bootstrap variables (profile, config file, logging) are skipped.
func (l *Layered) MergeEnv(prefix string, environ []string) *Layered {
	head := strings.ToUpper(prefix) + "_"
	values := make(map[string]interface{})

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(strings.ToUpper(name), head) {
			continue
		}

		key := normalize(name[len(head):])
		if key == "" || reservedEnv[key] {
			continue
		}
		values[key] = value
	}

	return l.Merge(values)
}

// String extracts key as a string.
func String(src Source, key string) (string, error) {
	v, ok := src.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	return s, nil
}

// Float64 extracts key as a float64.
func Float64(src Source, key string) (float64, error) {
	v, ok := src.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	return f, nil
}

// Float64Or extracts key as a float64, returning def when the key is absent.
func Float64Or(src Source, key string, def float64) (float64, error) {
	f, err := Float64(src, key)
	if errors.Is(err, ErrMissing) {
		return def, nil
	}
	return f, err
}

// Int extracts key as an int.
func Int(src Source, key string) (int, error) {
	v, ok := src.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	return i, nil
}

// Duration extracts key as a time.Duration. Strings use time.ParseDuration
// syntax ("5s"); bare numbers are nanoseconds.
func Duration(src Source, key string) (time.Duration, error) {
	v, ok := src.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	return d, nil
}

// Bool extracts key as a bool.
func Bool(src Source, key string) (bool, error) {
	v, ok := src.Lookup(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	return b, nil
}

// Strings extracts key as a list of strings. A plain string is split on commas,
// which is how lists arrive from the environment.
func Strings(src Source, key string) ([]string, error) {
	v, ok := src.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, key)
	}

	if s, ok := v.(string); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}

	ss, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	return ss, nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func asTable(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			out[cast.ToString(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}
