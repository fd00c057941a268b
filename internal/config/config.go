package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string       `json:"log_level" yaml:"log_level"`
	LogFormat string       `json:"log_format" yaml:"log_format"`
	Ingest    IngestConfig `json:"ingest" yaml:"ingest"`
	Cache    CacheConfig  `json:"cache" yaml:"cache"`
	Probe    ProbeConfig  `json:"probe" yaml:"probe"`
	Filter   FilterConfig `json:"filter" yaml:"filter"`
	API      APIConfig    `json:"api" yaml:"api"`
	Storage  StorageConfig `json:"storage" yaml:"storage"`
	Metrics  MetricsConfig `json:"metrics" yaml:"metrics"`
	Alerts   AlertsConfig  `json:"alerts" yaml:"alerts"`
}

// IngestConfig configures the sources that feed ingest.Sink.
// ChannelBuffer sizes the kafka-go reader's internal prefetch queue
// and the file tail reader's line buffer; it has no relay channel of
// its own to size since ingest sources submit directly to the cache.
type IngestConfig struct {
	ChannelBuffer int          `json:"channel_buffer" yaml:"channel_buffer"`
	REST          RESTConfig   `json:"rest" yaml:"rest"`
	FileTail      FileTailConfig `json:"file_tail" yaml:"file_tail"`
	Kafka         KafkaConfig  `json:"kafka" yaml:"kafka"`
}

type RESTConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type FileTailConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	StartAtEnd bool     `json:"start_at_end" yaml:"start_at_end"`
	Files      []string `json:"files" yaml:"files"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

// CacheConfig configures the icache.Cache backing every probe run.
type CacheConfig struct {
	QueueCapacity    int           `json:"queue_capacity" yaml:"queue_capacity"`
	IndexCapacity    int           `json:"index_capacity" yaml:"index_capacity"`
	ShutdownDrainMax time.Duration `json:"shutdown_drain_max" yaml:"shutdown_drain_max"`
}

// ProbeConfig configures the bundled filesystem/package probe.
type ProbeConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Root     string   `json:"root" yaml:"root"`
	Interval time.Duration `json:"interval" yaml:"interval"`
	Packages []string `json:"packages" yaml:"packages"`
}

// FilterConfig is the declarative form of filter.Config.
type FilterConfig struct {
	ExcludePathPrefixes []string `json:"exclude_path_prefixes" yaml:"exclude_path_prefixes"`
	ExcludePackageNames []string `json:"exclude_package_names" yaml:"exclude_package_names"`
	MinFileSize         int64    `json:"min_file_size" yaml:"min_file_size"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type MetricsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type AlertsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Ingest: IngestConfig{
			ChannelBuffer: 10000,
			REST:          RESTConfig{Enabled: true, Addr: ":8080"},
			FileTail:      FileTailConfig{Enabled: false, StartAtEnd: true},
			Kafka:         KafkaConfig{Enabled: false},
		},
		Cache: CacheConfig{
			QueueCapacity:    256,
			IndexCapacity:    0,
			ShutdownDrainMax: 30 * time.Second,
		},
		Probe: ProbeConfig{
			Enabled:  true,
			Root:     "/",
			Interval: 1 * time.Hour,
		},
		Filter: FilterConfig{
			MinFileSize: 0,
		},
		API:     APIConfig{Enabled: true, Addr: ":8081"},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:probevault.db?_pragma=busy_timeout(5000)"},
		Metrics: MetricsConfig{StoreLimit: 5000},
		Alerts:  AlertsConfig{StoreLimit: 1000},
	}
}

// Load reads and decodes the config at path, returning the decoded
// config along with the content's fingerprint so callers that need to
// detect later edits (Manager) don't have to re-read the file to get
// one. The fingerprint is computed with the same xxhash algorithm the
// cache uses for item fingerprints, over the raw bytes with leading and
// trailing whitespace trimmed, so a rewrite that leaves those bytes
// identical does not register as a change; any reformatting does, even
// if no value changed.
func Load(path string) (*Config, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, err
	}

	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, 0, errors.New("config file is empty")
	}
	fingerprint := xxhash.Sum64(trimmed)

	cfg := DefaultConfig()
	if err := decodeInto(cfg, trimmed); err != nil {
		return nil, 0, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, 0, err
	}
	return cfg, fingerprint, nil
}

// Save encodes cfg and writes it to path, choosing the wire format
// from the file extension (".json" for JSON, anything else for YAML)
// rather than sniffing content, since the caller picked the extension
// deliberately when it named the file.
func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// decodeInto sniffs whether raw is JSON or YAML by its first
// non-whitespace byte and unmarshals into cfg accordingly. YAML is the
// default since bare key: value documents, unlike JSON, don't open
// with a recognizable structural character.
func decodeInto(cfg *Config, raw []byte) error {
	i := 0
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t' || raw[i] == '\n' || raw[i] == '\r') {
		i++
	}
	if i < len(raw) && (raw[i] == '{' || raw[i] == '[') {
		return json.Unmarshal(raw, cfg)
	}
	return yaml.Unmarshal(raw, cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.StoreLimit <= 0 {
		cfg.Metrics.StoreLimit = 5000
	}
	if cfg.Alerts.StoreLimit <= 0 {
		cfg.Alerts.StoreLimit = 1000
	}
	if cfg.Ingest.ChannelBuffer <= 0 {
		cfg.Ingest.ChannelBuffer = 10000
	}
	if cfg.Cache.QueueCapacity <= 0 {
		cfg.Cache.QueueCapacity = 256
	}
	if cfg.Cache.ShutdownDrainMax <= 0 {
		cfg.Cache.ShutdownDrainMax = 30 * time.Second
	}
	if cfg.Probe.Interval <= 0 {
		cfg.Probe.Interval = 1 * time.Hour
	}
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.REST.Enabled && cfg.Ingest.REST.Addr == "" {
		return errors.New("ingest.rest.addr required when ingest.rest.enabled is true")
	}
	if cfg.Ingest.FileTail.Enabled && len(cfg.Ingest.FileTail.Files) == 0 {
		return errors.New("ingest.file_tail.files required when ingest.file_tail.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	if cfg.Cache.QueueCapacity <= 0 {
		return errors.New("cache.queue_capacity must be > 0")
	}
	if cfg.Probe.Enabled && cfg.Probe.Root == "" {
		return errors.New("probe.root required when probe.enabled is true")
	}
	if cfg.Storage.Enabled && cfg.Storage.Driver != "sqlite" && cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("storage.driver must be sqlite or postgres, got %q", cfg.Storage.Driver)
	}
	return nil
}

// Manager holds the live config behind an atomic.Value so readers
// never block on a reload in progress, and tracks the fingerprint of
// the file content it last loaded so Watch can tell a real edit from
// a touch (editor save with no value changes, backup rotation, a
// clock skewed mtime) without re-decoding the whole file.
type Manager struct {
	path        string
	cfg         atomic.Value
	fingerprint atomic.Uint64
}

func NewManager(path string) (*Manager, error) {
	cfg, fingerprint, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	m.fingerprint.Store(fingerprint)
	return m, nil
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	cfg, fingerprint, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	m.fingerprint.Store(fingerprint)
	return cfg, nil
}

func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := Save(m.path, cfg); err != nil {
		return err
	}
	m.cfg.Store(cfg)
	if _, fingerprint, err := Load(m.path); err == nil {
		m.fingerprint.Store(fingerprint)
	}
	return nil
}

// NeedsReload reports whether the file at m.path now hashes to
// something other than the fingerprint Manager last loaded. Content
// hashing catches the same edits mtime polling would and additionally
// survives mtime-preserving copies (e.g. tar -p, rsync -t) that a
// pure mtime check would miss.
func (m *Manager) NeedsReload() (bool, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return false, err
	}
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return false, errors.New("config file is empty")
	}
	return xxhash.Sum64(trimmed) != m.fingerprint.Load(), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
