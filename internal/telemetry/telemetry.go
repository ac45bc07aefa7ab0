/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry reports anonymous pipeline milestones: scenes seeded,
// scenes exported, episodes published. Strictly opt-in, disabled by
// default, and the payloads carry counts only; script text, speaker names
// and file paths never leave the machine.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "github.com/taxmusa/Auto-webtoon/internal/log"
	"github.com/taxmusa/Auto-webtoon/internal/version"
)

// Config holds runtime configuration for milestone events and crash
// uploads.
//
// Environment variables (read by FromEnv):
// - AWT_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - AWT_TELEMETRY_URL: base URL to POST JSON events to
// - AWT_CRASH_UPLOAD_URL: URL to POST crash reports to
// - AWT_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - AWT_TELEMETRY_DEBUG: if set, logs event send attempts
//
// Without an endpoint every event is a no-op, opt-in or not.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("AWT_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("AWT_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("AWT_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("AWT_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("AWT_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Milestone event names.
const (
	EventEpisodeSeeded    = "episode_seeded"
	EventSceneExported    = "scene_exported"
	EventEpisodeExported  = "episode_exported"
	EventEpisodePublished = "episode_published"
)

// milestone is the wire shape of one event. Counts only.
type milestone struct {
	Event    string `json:"event"`
	At       string `json:"at"`
	App      string `json:"app"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Scenes   int    `json:"scenes,omitempty"`
	Warnings int    `json:"warnings,omitempty"`
	Pages    int    `json:"pages,omitempty"`
}

// Sender queues milestones and posts them from a background goroutine.
// It never blocks the caller and drops events silently when the queue is
// full or the endpoint misbehaves.
type Sender struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan []byte
	once   sync.Once
	closed chan struct{}
}

// New constructs a sender and starts its drain goroutine.
func New(cfg Config) *Sender {
	s := &Sender{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Enabled reports whether milestones are opted in and an endpoint is set.
func (s *Sender) Enabled() bool { return s != nil && s.cfg.OptIn && s.cfg.EventsURL != "" }

// EpisodeSeeded records an initial overlay seed over the given scene count.
func (s *Sender) EpisodeSeeded(scenes int) {
	s.emit(milestone{Event: EventEpisodeSeeded, Scenes: scenes})
}

// SceneExported records one scene export and how many render warnings it
// produced.
func (s *Sender) SceneExported(warnings int) {
	s.emit(milestone{Event: EventSceneExported, Warnings: warnings})
}

// EpisodeExported records a batch export over the given scene count.
func (s *Sender) EpisodeExported(scenes int) {
	s.emit(milestone{Event: EventEpisodeExported, Scenes: scenes})
}

// EpisodePublished records a publish of the given page count.
func (s *Sender) EpisodePublished(pages int) {
	s.emit(milestone{Event: EventEpisodePublished, Pages: pages})
}

func (s *Sender) emit(m milestone) {
	if !s.Enabled() {
		return
	}
	m.At = time.Now().UTC().Format(time.RFC3339Nano)
	m.App = "autowebtoon"
	m.Version = version.String()
	m.Platform = runtime.GOOS + "/" + runtime.GOARCH
	buf, err := json.Marshal(m)
	if err != nil {
		return
	}
	select {
	case s.q <- buf:
	default:
		// queue full, drop
	}
}

// Flush waits briefly for the queue to drain.
func (s *Sender) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(s.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the drain goroutine.
func (s *Sender) Close() { s.once.Do(func() { close(s.closed) }) }

func (s *Sender) loop() {
	for {
		select {
		case <-s.closed:
			return
		case buf := <-s.q:
			s.send(buf)
		}
	}
}

func (s *Sender) send(buf []byte) {
	req, err := http.NewRequest(http.MethodPost, s.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.cli.Do(req)
	if err != nil {
		if s.cfg.DebugLogging {
			s.log.Debug("milestone send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if s.cfg.DebugLogging {
		s.log.Debug("milestone sent")
	}
}

// UploadCrash posts an already-serialized crash report to the configured
// crash URL if opted in.
func (s *Sender) UploadCrash(report []byte) {
	if s == nil || !s.cfg.OptIn || s.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, s.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := s.cli.Do(req)
		if err != nil {
			if s.cfg.DebugLogging {
				s.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
		if s.cfg.DebugLogging {
			s.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

var (
	defaultSender *Sender
	defaultOnce   sync.Once
)

// Default returns the package-level sender, built from the environment on
// first use.
func Default() *Sender {
	defaultOnce.Do(func() { defaultSender = New(FromEnv()) })
	return defaultSender
}

// Package-level helpers over the default sender.

func Enabled() bool              { return Default().Enabled() }
func EpisodeSeeded(scenes int)   { Default().EpisodeSeeded(scenes) }
func SceneExported(warnings int) { Default().SceneExported(warnings) }
func EpisodeExported(scenes int) { Default().EpisodeExported(scenes) }
func EpisodePublished(pages int) { Default().EpisodePublished(pages) }
func UploadCrash(report []byte)  { Default().UploadCrash(report) }
