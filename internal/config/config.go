// config.go - key=value configuration file reader
//
// alcore - a portable ambisonic/HRTF audio rendering core
// License: GPLv3 or later

// Package config implements the §6 text configuration format: section
// markers (`[name]`), `key = value` lines with bare, single- or
// double-quoted values, and `#` comments. This is a hand-rolled scanner
// rather than an ecosystem INI/YAML/TOML parser: the format's quoting
// and per-backend section sprawl don't match any of those dialects
// closely enough to reuse one without fighting it (see DESIGN.md).
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// File is a parsed configuration: sections of key/value pairs, plus the
// implicit "general" section used when no `[name]` marker precedes a
// key.
type File struct {
	sections map[string]map[string]string
}

// Load reads and parses path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a configuration stream from r.
func Parse(r io.Reader) (*File, error) {
	cfg := &File{sections: map[string]map[string]string{}}
	section := "general"
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			end := strings.IndexByte(line, ']')
			if end < 0 {
				return nil, fmt.Errorf("config: line %d: unterminated section header", lineNo)
			}
			section = strings.TrimSpace(line[1:end])
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, fmt.Errorf("config: line %d: expected key = value", lineNo)
		}
		key := strings.TrimSpace(line[:eq])
		val := unquote(strings.TrimSpace(line[eq+1:]))
		if cfg.sections[section] == nil {
			cfg.sections[section] = map[string]string{}
		}
		cfg.sections[section][key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	// Strip a trailing inline comment on a bare value.
	if idx := strings.IndexByte(v, '#'); idx >= 0 {
		v = strings.TrimSpace(v[:idx])
	}
	return v
}

// String returns the value of key in section, or ok=false if absent.
func (f *File) String(section, key string) (string, bool) {
	s, ok := f.sections[section]
	if !ok {
		return "", false
	}
	v, ok := s[key]
	return v, ok
}

// Bool returns key in section parsed as a boolean (true/false/yes/no/1/0).
func (f *File) Bool(section, key string) (bool, bool) {
	v, ok := f.String(section, key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	}
	return false, false
}

// Int returns key in section parsed as an integer.
func (f *File) Int(section, key string) (int, bool) {
	v, ok := f.String(section, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StringList returns a comma-separated value split into trimmed parts,
// used for `[general] drivers` and similar ordered-preference keys.
func (f *File) StringList(section, key string) ([]string, bool) {
	v, ok := f.String(section, key)
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvConfigPath returns the additional configuration file selected by
// the ALSOFT_CONF environment variable, if any.
func EnvConfigPath() (string, bool) {
	v := os.Getenv("ALSOFT_CONF")
	return v, v != ""
}

// DriverPreference returns the ordered backend preference: the
// ALSOFT_DRIVERS environment variable when set, otherwise the file's
// `[general] drivers` key. f may be nil when no config file was loaded.
func DriverPreference(f *File) []string {
	if v := os.Getenv("ALSOFT_DRIVERS"); v != "" {
		return splitList(v)
	}
	if f != nil {
		if list, ok := f.StringList("general", "drivers"); ok {
			return list
		}
	}
	return nil
}
