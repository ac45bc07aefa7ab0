/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user-editable YAML configuration and applies
// environment overrides. The publish token never touches the config file;
// it lives in the OS keyring.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/taxmusa/Auto-webtoon/internal/domain"

	keyring "github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

type PathsConfig struct {
	FontsDir  string `yaml:"fonts_dir"`
	OutputDir string `yaml:"output_dir"`
}

type PublishConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type ExportConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// AppConfig is the persisted user configuration.
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int                    `yaml:"config_version"`
	Overlay       domain.OverlaySettings `yaml:"overlay"`
	Paths         PathsConfig            `yaml:"paths"`
	Export        ExportConfig           `yaml:"export"`
	Publish       PublishConfig          `yaml:"publish"`
	Logging       LoggingConfig          `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Overlay:       domain.DefaultOverlaySettings(),
		Paths:         PathsConfig{FontsDir: "fonts", OutputDir: "out"},
		Export:        ExportConfig{Parallelism: 4},
		Publish:       PublishConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvFontsDir         = "AWT_FONTS_DIR"
	EnvOutputDir        = "AWT_OUTPUT_DIR"
	EnvExportParallel   = "AWT_EXPORT_PARALLEL"
	EnvPublishURL       = "AWT_PUBLISH_URL"
	EnvPublishTimeoutMs = "AWT_PUBLISH_TIMEOUT_MS"
	EnvPublishTLSInsec  = "AWT_TLS_INSECURE"
	EnvLogLevel         = "AWT_LOG_LEVEL"
	EnvLogFormat        = "AWT_LOG_FORMAT"
	EnvLogSource        = "AWT_LOG_SOURCE"
	EnvLogFile          = "AWT_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "AutoWebtoon"
	keyringToken   = "publish_token"
)

// TokenStore abstracts the keyring, so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring stores secrets via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "AutoWebtoon")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "AutoWebtoon")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "autowebtoon")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and applies
// environment overrides. The publish token is loaded from the keyring and
// returned separately; a missing token is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), "", err
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// LoadFile reads a specific config file over the defaults, skipping the
// per-user path and the keyring.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// DeleteToken removes the publish token from the keyring.
func DeleteToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvFontsDir)); v != "" {
		cfg.Paths.FontsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		cfg.Paths.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportParallel)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Export.Parallelism = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPublishURL)); v != "" {
		cfg.Publish.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPublishTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publish.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPublishTLSInsec)); v != "" {
		cfg.Publish.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "paths.fonts_dir":
		env = EnvFontsDir
	case "paths.output_dir":
		env = EnvOutputDir
	case "export.parallelism":
		env = EnvExportParallel
	case "publish.base_url":
		env = EnvPublishURL
	case "publish.timeout_ms":
		env = EnvPublishTimeoutMs
	case "publish.tls_insecure":
		env = EnvPublishTLSInsec
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
