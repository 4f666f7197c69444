package docreader

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg from DOCREADER_* variables. Tool locations come
// from LIBREOFFICE_PATH, ANTIWORD_PATH and CATDOC_PATH, which the legacy
// pipeline reads itself.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"DOCREADER_MAX_CONCURRENCY", &c.MaxConcurrency},
		{"DOCREADER_CHUNK_SIZE", &c.Defaults.ChunkSize},
		{"DOCREADER_CHUNK_OVERLAP", &c.Defaults.ChunkOverlap},
	}
	for _, e := range ints {
		if v := getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	if v := getenv("DOCREADER_MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DOCREADER_MAX_FILE_SIZE: %w", err)
		}
		c.MaxFileSize = n
	}
	if v := getenv("DOCREADER_MULTIMODAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOCREADER_MULTIMODAL: %w", err)
		}
		c.Defaults.Multimodal = b
	}
	if v := getenv("DOCREADER_SEPARATORS"); v != "" {
		// Comma-separated, with \n escapes: "\n\n,\n,. , "
		var seps []string
		for _, s := range strings.Split(v, ",") {
			seps = append(seps, strings.ReplaceAll(s, `\n`, "\n"))
		}
		c.Defaults.Separators = seps
	}
	if v := getenv("DOCREADER_SECONDARY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOCREADER_SECONDARY_TIMEOUT: %w", err)
		}
		c.Legacy.SecondaryTimeout = d
	}
	if v := getenv("DOCREADER_TEMP_DIR"); v != "" {
		c.Legacy.TempDir = v
	}
	if v := getenv("DOCREADER_CACHE_PATH"); v != "" {
		c.CachePath = v
	}
	if v := getenv("DOCREADER_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOCREADER_FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if v := getenv("DOCREADER_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOCREADER_CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}
	return nil
}

// LoadConfig starts from DefaultConfig, overlays the JSON file at path (if
// path is not empty), then the environment.
func LoadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}
