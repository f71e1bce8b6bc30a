package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultHTTPListen     = ":8080"
	defaultHealthPath     = "/healthz"
	defaultIngestPath     = "/ingest"
	defaultMetricsPath    = "/metrics"
	defaultMaxBodyBytes   = 1 << 20
	defaultHistoryEvents  = 10000
	defaultHistoryMinutes = 120
	defaultHistorySweep   = 60
	defaultStateTTLHours  = 6
	defaultStateSweep     = 60
	defaultStateShards    = 32
	defaultSampleAlerts   = 10

	// ChannelKindWebhook identifies the outbound webhook transport.
	ChannelKindWebhook = "webhook"
	// ChannelKindChatOps identifies the chat-ops transport.
	ChannelKindChatOps = "chatops"
	// ChannelKindUI identifies the real-time UI broadcast transport.
	ChannelKindUI = "ui"
	// ChannelKindEmail identifies the email transport placeholder.
	ChannelKindEmail = "email"

	// ChatOpsProviderSlack posts Slack-compatible webhook attachments.
	ChatOpsProviderSlack = "slack"
	// ChatOpsProviderTelegram posts through the Telegram Bot API.
	ChatOpsProviderTelegram = "telegram"
)

var (
	channelKinds = map[string]struct{}{
		ChannelKindWebhook: {},
		ChannelKindChatOps: {},
		ChannelKindUI:      {},
		ChannelKindEmail:   {},
	}
	conditionOps = map[string]struct{}{
		">": {}, ">=": {}, "<": {}, "<=": {}, "==": {}, "!=": {},
	}
)

// Config is the root configuration snapshot.
// Params: service, history, state, log, ingest, notify sections and rules.
// Returns: validated immutable snapshot for one engine run.
type Config struct {
	Service ServiceConfig `toml:"service"`
	History HistoryConfig `toml:"history"`
	State   StateConfig   `toml:"state"`
	Log     LogConfig     `toml:"log"`
	Ingest  IngestConfig  `toml:"ingest"`
	Notify  NotifyConfig  `toml:"notify"`
	Rules   []RuleConfig  `toml:"rule"`
}

// ServiceConfig keeps HTTP surface settings.
// Params: listen address, well-known paths, and body limit.
// Returns: service wiring values with defaults applied.
type ServiceConfig struct {
	HTTPListen   string `toml:"http_listen"`
	HealthPath   string `toml:"health_path"`
	IngestPath   string `toml:"ingest_path"`
	MetricsPath  string `toml:"metrics_path"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// HistoryConfig bounds the replay event buffer.
// Params: count cap, age horizon, sweep cadence, and sample cap.
// Returns: replay buffer sizing values.
type HistoryConfig struct {
	MaxEvents      int `toml:"max_events"`
	HorizonMinutes int `toml:"horizon_minutes"`
	SweepSeconds   int `toml:"sweep_seconds"`
	SampleAlerts   int `toml:"sample_alerts"`
}

// Horizon returns the history age bound.
// Params: none.
// Returns: horizon duration.
func (h HistoryConfig) Horizon() time.Duration {
	return time.Duration(h.HorizonMinutes) * time.Minute
}

// SweepInterval returns the history sweep cadence.
// Params: none.
// Returns: sweep interval duration.
func (h HistoryConfig) SweepInterval() time.Duration {
	return time.Duration(h.SweepSeconds) * time.Second
}

// StateConfig bounds the rule state store.
// Params: idle TTL, sweep cadence, and shard count.
// Returns: state store sizing values.
type StateConfig struct {
	IdleTTLHours int `toml:"idle_ttl_hours"`
	SweepSeconds int `toml:"sweep_seconds"`
	Shards       int `toml:"shards"`
}

// IdleTTL returns the state entry idle eviction bound.
// Params: none.
// Returns: idle TTL duration.
func (s StateConfig) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLHours) * time.Hour
}

// SweepInterval returns the state sweep cadence.
// Params: none.
// Returns: sweep interval duration.
func (s StateConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepSeconds) * time.Second
}

// LogConfig keeps sink settings for the logging package.
// Params: console and file sink sections.
// Returns: logger construction values.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig is one log sink definition.
// Params: enabled flag, level, format, and file path.
// Returns: sink construction values.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// IngestConfig keeps optional transport ingest settings.
// Params: NATS subscription section.
// Returns: ingest wiring values.
type IngestConfig struct {
	NATS NATSIngestConfig `toml:"nats"`
}

// NATSIngestConfig subscribes the engine to a telemetry subject.
// Params: enabled flag, server URL, subject, and queue group.
// Returns: NATS consumer wiring values.
type NATSIngestConfig struct {
	Enabled    bool   `toml:"enabled"`
	URL        string `toml:"url"`
	Subject    string `toml:"subject"`
	QueueGroup string `toml:"queue_group"`
}

// NotifyConfig keeps global transport settings per channel kind.
// Params: webhook, chatops, and ui sections.
// Returns: dispatcher construction values.
type NotifyConfig struct {
	Webhook WebhookNotifier `toml:"webhook"`
	ChatOps ChatOpsNotifier `toml:"chatops"`
	UI      UINotifier      `toml:"ui"`
}

// WebhookNotifier keeps outbound webhook transport settings.
// Params: endpoint, per-attempt timeout, and retry policy knobs.
// Returns: webhook sender construction values.
type WebhookNotifier struct {
	URL           string            `toml:"url"`
	TimeoutSec    int               `toml:"timeout_sec"`
	MaxAttempts   int               `toml:"max_attempts"`
	BackoffBaseMS int               `toml:"backoff_base_ms"`
	BackoffMaxMS  int               `toml:"backoff_max_ms"`
	Headers       map[string]string `toml:"headers"`
}

// ChatOpsNotifier keeps chat transport settings.
// Params: provider selector plus Slack webhook or Telegram bot settings.
// Returns: chat-ops sender construction values.
type ChatOpsNotifier struct {
	Provider   string `toml:"provider"`
	WebhookURL string `toml:"webhook_url"`
	TimeoutSec int    `toml:"timeout_sec"`
	BotToken   string `toml:"bot_token"`
	ChatID     string `toml:"chat_id"`
	APIBase    string `toml:"api_base"`
}

// UINotifier keeps real-time broadcast settings.
// Params: NATS server URL and broadcast subject.
// Returns: UI sender construction values.
type UINotifier struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// RuleConfig is one alerting rule definition.
// Params: identity, priority, conditions, optional hysteresis/cooldown/
// rate-limit/scope, and channel list.
// Returns: immutable rule snapshot for evaluation passes.
type RuleConfig struct {
	ID              string            `toml:"id"`
	Name            string            `toml:"name"`
	Description     string            `toml:"description"`
	Enabled         *bool             `toml:"enabled"`
	Priority        string            `toml:"priority"`
	CooldownMinutes int               `toml:"cooldown_minutes"`
	Conditions      []ConditionConfig `toml:"condition"`
	Hysteresis      *HysteresisConfig `toml:"hysteresis"`
	RateLimit       *RateLimitConfig  `toml:"rate_limit"`
	Scope           *ScopeConfig      `toml:"scope"`
	Channels        []ChannelConfig   `toml:"channel"`
}

// IsEnabled reports whether the rule participates in evaluation.
// Params: none.
// Returns: true unless explicitly disabled.
func (r RuleConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Cooldown returns the minimum gap between alerts for one fingerprint.
// Params: none.
// Returns: cooldown duration, zero when unset.
func (r RuleConfig) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// ConditionConfig is one threshold predicate over an event field.
// Params: dotted field path, comparison op, threshold, and optional
// sustained duration.
// Returns: predicate definition for the condition evaluator.
type ConditionConfig struct {
	Field           string  `toml:"field"`
	Op              string  `toml:"op"`
	Threshold       float64 `toml:"threshold"`
	DurationMinutes int     `toml:"duration_minutes"`
}

// Duration returns the minimum sustained duration gate.
// Params: none.
// Returns: duration, zero when the condition is instantaneous.
func (c ConditionConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// HysteresisConfig is the dual-threshold flapping guard.
// Params: on and off thresholds.
// Returns: hysteresis definition applied to the first condition.
type HysteresisConfig struct {
	OnThreshold  float64 `toml:"on_threshold"`
	OffThreshold float64 `toml:"off_threshold"`
}

// RateLimitConfig caps alerts per fingerprint window.
// Params: alert cap and window width.
// Returns: rule-level rate limit definition.
type RateLimitConfig struct {
	MaxAlerts     int `toml:"max_alerts"`
	WindowMinutes int `toml:"window_minutes"`
}

// Window returns the rate-limit window width.
// Params: none.
// Returns: window duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

// ScopeConfig restricts a rule to allowed scope identifiers.
// Params: allowed warehouse/zone/shift lists (empty list allows all).
// Returns: scope filter definition.
type ScopeConfig struct {
	Warehouses []string `toml:"warehouses"`
	Zones      []string `toml:"zones"`
	Shifts     []string `toml:"shifts"`
}

// ChannelConfig binds one delivery channel to a rule.
// Params: channel kind, enabled flag, and channel-scoped rate limit.
// Returns: channel binding for the dispatcher.
type ChannelConfig struct {
	Kind              string `toml:"kind"`
	Enabled           *bool  `toml:"enabled"`
	MaxPerWindow      int    `toml:"max_per_window"`
	RateWindowMinutes int    `toml:"rate_window_minutes"`
}

// IsEnabled reports whether the channel participates in delivery.
// Params: none.
// Returns: true unless explicitly disabled.
func (c ChannelConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RateWindow returns the channel-scoped sliding window width.
// Params: none.
// Returns: window duration, zero when the channel is unlimited.
func (c ChannelConfig) RateWindow() time.Duration {
	return time.Duration(c.RateWindowMinutes) * time.Minute
}

// ConfigSource selects one file or one directory of TOML fragments.
// Params: exactly one of file/dir paths.
// Returns: resolved load source.
type ConfigSource struct {
	FilePath string
	DirPath  string
}

// FromCLI validates CLI source flags.
// Params: --config-file and --config-dir values.
// Returns: resolved source or flag usage error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	file := strings.TrimSpace(filePath)
	dir := strings.TrimSpace(dirPath)
	switch {
	case file == "" && dir == "":
		return ConfigSource{}, errors.New("either --config-file or --config-dir is required")
	case file != "" && dir != "":
		return ConfigSource{}, errors.New("--config-file and --config-dir are mutually exclusive")
	case file != "":
		return ConfigSource{FilePath: file}, nil
	default:
		return ConfigSource{DirPath: dir}, nil
	}
}

// LoadSnapshot loads and validates one configuration snapshot.
// Params: resolved config source.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var (
		cfg Config
		err error
	)
	if src.FilePath != "" {
		cfg, err = loadFile(src.FilePath)
	} else {
		cfg, err = loadDir(src.DirPath)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile decodes one TOML config file.
// Params: file path.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	var cfg Config
	decoder := toml.NewDecoder(strings.NewReader(string(body)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %q: %w", path, err)
	}
	return cfg, nil
}

// loadDir decodes and merges sorted TOML fragments from one directory.
// Params: directory path.
// Returns: merged config or read/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return Config{}, fmt.Errorf("config dir %q contains no .toml files", dir)
	}
	sort.Strings(names)

	var merged Config
	for _, name := range names {
		fragment, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			return Config{}, err
		}
		mergeConfig(&merged, fragment)
	}
	return merged, nil
}

// mergeConfig overlays one fragment onto the accumulated config.
// Params: destination pointer and source fragment. Scalar sections are
// replaced field-by-field when the fragment sets them; rules append.
// Returns: destination mutated in place.
func mergeConfig(dst *Config, src Config) {
	mergeString(&dst.Service.HTTPListen, src.Service.HTTPListen)
	mergeString(&dst.Service.HealthPath, src.Service.HealthPath)
	mergeString(&dst.Service.IngestPath, src.Service.IngestPath)
	mergeString(&dst.Service.MetricsPath, src.Service.MetricsPath)
	mergeInt64(&dst.Service.MaxBodyBytes, src.Service.MaxBodyBytes)

	mergeInt(&dst.History.MaxEvents, src.History.MaxEvents)
	mergeInt(&dst.History.HorizonMinutes, src.History.HorizonMinutes)
	mergeInt(&dst.History.SweepSeconds, src.History.SweepSeconds)
	mergeInt(&dst.History.SampleAlerts, src.History.SampleAlerts)

	mergeInt(&dst.State.IdleTTLHours, src.State.IdleTTLHours)
	mergeInt(&dst.State.SweepSeconds, src.State.SweepSeconds)
	mergeInt(&dst.State.Shards, src.State.Shards)

	if src.Log.Console != (LogSinkConfig{}) {
		dst.Log.Console = src.Log.Console
	}
	if src.Log.File != (LogSinkConfig{}) {
		dst.Log.File = src.Log.File
	}
	if src.Ingest.NATS != (NATSIngestConfig{}) {
		dst.Ingest.NATS = src.Ingest.NATS
	}
	if src.Notify.Webhook.URL != "" || src.Notify.Webhook.MaxAttempts != 0 {
		dst.Notify.Webhook = src.Notify.Webhook
	}
	if src.Notify.ChatOps.Provider != "" {
		dst.Notify.ChatOps = src.Notify.ChatOps
	}
	if src.Notify.UI != (UINotifier{}) {
		dst.Notify.UI = src.Notify.UI
	}
	dst.Rules = append(dst.Rules, src.Rules...)
}

// mergeString replaces destination when the source value is set.
// Params: destination pointer and source value.
// Returns: destination mutated in place.
func mergeString(dst *string, src string) {
	if strings.TrimSpace(src) != "" {
		*dst = src
	}
}

// mergeInt replaces destination when the source value is set.
// Params: destination pointer and source value.
// Returns: destination mutated in place.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// mergeInt64 replaces destination when the source value is set.
// Params: destination pointer and source value.
// Returns: destination mutated in place.
func mergeInt64(dst *int64, src int64) {
	if src != 0 {
		*dst = src
	}
}

// applyDefaults fills unset fields with engine defaults.
// Params: mutable config pointer.
// Returns: config mutated in place.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.HTTPListen) == "" {
		cfg.Service.HTTPListen = defaultHTTPListen
	}
	if strings.TrimSpace(cfg.Service.HealthPath) == "" {
		cfg.Service.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(cfg.Service.IngestPath) == "" {
		cfg.Service.IngestPath = defaultIngestPath
	}
	if strings.TrimSpace(cfg.Service.MetricsPath) == "" {
		cfg.Service.MetricsPath = defaultMetricsPath
	}
	if cfg.Service.MaxBodyBytes <= 0 {
		cfg.Service.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.History.MaxEvents <= 0 {
		cfg.History.MaxEvents = defaultHistoryEvents
	}
	if cfg.History.HorizonMinutes <= 0 {
		cfg.History.HorizonMinutes = defaultHistoryMinutes
	}
	if cfg.History.SweepSeconds <= 0 {
		cfg.History.SweepSeconds = defaultHistorySweep
	}
	if cfg.History.SampleAlerts <= 0 {
		cfg.History.SampleAlerts = defaultSampleAlerts
	}
	if cfg.State.IdleTTLHours <= 0 {
		cfg.State.IdleTTLHours = defaultStateTTLHours
	}
	if cfg.State.SweepSeconds <= 0 {
		cfg.State.SweepSeconds = defaultStateSweep
	}
	if cfg.State.Shards <= 0 {
		cfg.State.Shards = defaultStateShards
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console = LogSinkConfig{Enabled: true, Level: "info", Format: "line"}
	}
	if cfg.Notify.Webhook.TimeoutSec <= 0 {
		cfg.Notify.Webhook.TimeoutSec = 10
	}
	if cfg.Notify.Webhook.MaxAttempts <= 0 {
		cfg.Notify.Webhook.MaxAttempts = 3
	}
	if cfg.Notify.Webhook.BackoffBaseMS <= 0 {
		cfg.Notify.Webhook.BackoffBaseMS = 500
	}
	if cfg.Notify.Webhook.BackoffMaxMS <= 0 {
		cfg.Notify.Webhook.BackoffMaxMS = 30000
	}
	if cfg.Notify.ChatOps.TimeoutSec <= 0 {
		cfg.Notify.ChatOps.TimeoutSec = 10
	}
	if strings.TrimSpace(cfg.Notify.UI.Subject) == "" {
		cfg.Notify.UI.Subject = "floorwatch.alerts"
	}
}

// Validate checks one configuration snapshot for contract violations.
// Params: config snapshot after defaults.
// Returns: first validation error found.
func Validate(cfg Config) error {
	seen := make(map[string]struct{}, len(cfg.Rules))
	for index, rule := range cfg.Rules {
		if err := ValidateRule(rule); err != nil {
			return fmt.Errorf("rule[%d]: %w", index, err)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("rule[%d]: duplicate rule id %q", index, rule.ID)
		}
		seen[rule.ID] = struct{}{}
	}
	if cfg.Ingest.NATS.Enabled {
		if strings.TrimSpace(cfg.Ingest.NATS.URL) == "" {
			return errors.New("ingest.nats: url is required")
		}
		if strings.TrimSpace(cfg.Ingest.NATS.Subject) == "" {
			return errors.New("ingest.nats: subject is required")
		}
	}
	return nil
}

// ValidateRule checks one rule definition for contract violations.
// Params: rule definition.
// Returns: first validation error found.
func ValidateRule(rule RuleConfig) error {
	if strings.TrimSpace(rule.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(rule.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := parsePriorityToken(rule.Priority); err != nil {
		return err
	}
	if len(rule.Conditions) == 0 {
		return errors.New("at least one condition is required")
	}
	for index, condition := range rule.Conditions {
		if strings.TrimSpace(condition.Field) == "" {
			return fmt.Errorf("condition[%d]: field is required", index)
		}
		if _, ok := conditionOps[condition.Op]; !ok {
			return fmt.Errorf("condition[%d]: unsupported op %q", index, condition.Op)
		}
		if condition.DurationMinutes < 0 {
			return fmt.Errorf("condition[%d]: duration_minutes must be >=0", index)
		}
	}
	if rule.CooldownMinutes < 0 {
		return errors.New("cooldown_minutes must be >=0")
	}
	if rule.RateLimit != nil {
		if rule.RateLimit.MaxAlerts <= 0 {
			return errors.New("rate_limit.max_alerts must be >0")
		}
		if rule.RateLimit.WindowMinutes <= 0 {
			return errors.New("rate_limit.window_minutes must be >0")
		}
	}
	for index, channel := range rule.Channels {
		if _, ok := channelKinds[channel.Kind]; !ok {
			return fmt.Errorf("channel[%d]: unsupported kind %q", index, channel.Kind)
		}
		if channel.MaxPerWindow < 0 || channel.RateWindowMinutes < 0 {
			return fmt.Errorf("channel[%d]: rate limit values must be >=0", index)
		}
		if (channel.MaxPerWindow > 0) != (channel.RateWindowMinutes > 0) {
			return fmt.Errorf("channel[%d]: max_per_window and rate_window_minutes go together", index)
		}
	}
	return nil
}

// IsSupportedOp reports whether one comparison operator is known.
// Params: operator token.
// Returns: true for the fixed {>,>=,<,<=,==,!=} set.
func IsSupportedOp(op string) bool {
	_, ok := conditionOps[op]
	return ok
}

// parsePriorityToken validates one rule priority token.
// Params: raw priority string.
// Returns: normalized token or error for unknown values.
func parsePriorityToken(raw string) (string, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	switch token {
	case "low", "medium", "high", "critical":
		return token, nil
	default:
		return "", fmt.Errorf("unsupported priority %q", raw)
	}
}
