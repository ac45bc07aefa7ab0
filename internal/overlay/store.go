/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package overlay is the layer-state store: it owns the editable overlay
// state of every scene, serializes edits per scene, and turns states into
// export artifacts. Base images are read-only inputs; every export writes a
// new file.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
	"github.com/taxmusa/Auto-webtoon/internal/export"
	"github.com/taxmusa/Auto-webtoon/internal/layout"
	applog "github.com/taxmusa/Auto-webtoon/internal/log"
	"github.com/taxmusa/Auto-webtoon/internal/render"
	"github.com/taxmusa/Auto-webtoon/internal/storage"
	"github.com/taxmusa/Auto-webtoon/internal/textlayout"
	"github.com/taxmusa/Auto-webtoon/internal/undo"

	cache "github.com/patrickmn/go-cache"
)

const (
	lockAttempts   = 50
	lockRetryDelay = 10 * time.Millisecond
)

// Store coordinates all scene overlay state. Operations on different
// scenes run concurrently; operations on the same scene are exclusive.
type Store struct {
	records  storage.RecordStore
	fonts    textlayout.Provider
	outDir   string
	previews *cache.Cache
	history  *undo.Manager
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore builds a Store over the given record store and font provider.
// Exports land in outDir.
func NewStore(records storage.RecordStore, fonts textlayout.Provider, outDir string) *Store {
	return &Store{
		records:  records,
		fonts:    fonts,
		outDir:   outDir,
		previews: cache.New(5*time.Minute, 10*time.Minute),
		history:  undo.NewManager(undo.Config{MaxPerScene: 32}),
		log:      applog.WithComponent("overlay"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockScene acquires the scene's exclusive section, retrying a bounded
// number of times before giving up with ErrConcurrentEdit.
func (s *Store) lockScene(ctx context.Context, sceneID string) (*sync.Mutex, error) {
	s.mu.Lock()
	l, ok := s.locks[sceneID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sceneID] = l
	}
	s.mu.Unlock()

	for i := 0; i < lockAttempts; i++ {
		if l.TryLock() {
			return l, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return nil, fmt.Errorf("scene %s: %w", sceneID, ErrConcurrentEdit)
}

// Initialize seeds (or re-seeds) a scene's layer state from its script
// scene and base image. Auto geometry comes from the layout resolver; any
// prior state for the scene is replaced, which is how regenerated base
// images pick up a clean overlay stack.
func (s *Store) Initialize(ctx context.Context, sceneID string, scene domain.Scene, base domain.BaseImage, settings domain.OverlaySettings) (domain.LayerState, error) {
	l, err := s.lockScene(ctx, sceneID)
	if err != nil {
		return domain.LayerState{}, err
	}
	defer l.Unlock()

	opts := layout.FromSettings(settings)
	counters := map[domain.Side]int{}
	bubbles := make([]domain.BubbleDescriptor, 0, len(scene.Dialogues))
	for i, d := range scene.Dialogues {
		if d.Blank() {
			s.log.Warn("seeding blank dialogue",
				slog.String("scene", sceneID),
				slog.Int("bubble", i),
				slog.Any("err", fmt.Errorf("%s: %w", d.Speaker, ErrEmptyText)))
		}
		side := layout.SideOf(d)
		style := d.Style
		if style == "" {
			style = settings.BubbleStyle
		}
		size := d.FontSize
		if size <= 0 {
			size = settings.FontSize
		}
		g := layout.ResolveBubble(float32(base.Width), float32(base.Height), side, counters[side], opts)
		counters[side]++
		bubbles = append(bubbles, domain.BubbleDescriptor{
			Index:    i,
			Speaker:  d.Speaker,
			Text:     d.Text,
			Style:    style,
			Position: domain.PositionAuto,
			Geometry: g,
			FontSize: size,
		})
	}

	st := domain.LayerState{
		SceneID:     sceneID,
		SceneNumber: scene.Number,
		Title:       scene.Title,
		Base:        base,
		Bubbles:     bubbles,
		Settings:    settings,
		Series:      scene.Series,
		LastOfPart:  scene.LastOfPart,
		Revision:    1,
		UpdatedAt:   time.Now().UTC(),
	}
	if scene.Narration != "" {
		st.Narration = &domain.NarrationDescriptor{
			Text:     scene.Narration,
			Position: settings.NarrationPosition,
			FontSize: settings.NarrationFontSize,
		}
	}

	if err := s.records.PutState(ctx, st); err != nil {
		return domain.LayerState{}, err
	}
	s.history.ClearScene(sceneID)
	s.log.Info("scene initialized", slog.String("scene", sceneID), slog.Int("bubbles", len(bubbles)))
	return st, nil
}

// Get returns the current layer state of a scene.
func (s *Store) Get(ctx context.Context, sceneID string) (domain.LayerState, error) {
	st, ok, err := s.records.GetState(ctx, sceneID)
	if err != nil {
		return domain.LayerState{}, err
	}
	if !ok {
		return domain.LayerState{}, fmt.Errorf("scene %s: %w", sceneID, ErrSceneNotFound)
	}
	return st, nil
}

// UpdateTarget is one edit applied to a layer state.
type UpdateTarget interface {
	apply(st *domain.LayerState) error
}

// SetDialogueText replaces a bubble's text. Blank text is valid; the
// bubble is omitted at export time.
type SetDialogueText struct {
	Index int
	Text  string
}

func (t SetDialogueText) apply(st *domain.LayerState) error {
	if t.Index < 0 || t.Index >= len(st.Bubbles) {
		return fmt.Errorf("bubble index %d out of range", t.Index)
	}
	st.Bubbles[t.Index].Text = t.Text
	return nil
}

// SetDialogueStyle changes a bubble's style. Validity is checked against
// the builtin style table so a typo fails at edit time, not at export.
type SetDialogueStyle struct {
	Index int
	Style domain.BubbleStyleName
}

func (t SetDialogueStyle) apply(st *domain.LayerState) error {
	if t.Index < 0 || t.Index >= len(st.Bubbles) {
		return fmt.Errorf("bubble index %d out of range", t.Index)
	}
	if _, ok := render.GetBubbleStyle(t.Style); !ok {
		return render.StyleNotFoundError{Style: t.Style}
	}
	st.Bubbles[t.Index].Style = t.Style
	return nil
}

// SetDialoguePosition pins a bubble to explicit geometry and switches it to
// fixed positioning.
type SetDialoguePosition struct {
	Index    int
	Geometry domain.BubbleGeometry
}

func (t SetDialoguePosition) apply(st *domain.LayerState) error {
	if t.Index < 0 || t.Index >= len(st.Bubbles) {
		return fmt.Errorf("bubble index %d out of range", t.Index)
	}
	st.Bubbles[t.Index].Geometry = t.Geometry
	st.Bubbles[t.Index].Position = domain.PositionFixed
	return nil
}

// SetNarration replaces the narration text; empty text removes the layer.
type SetNarration struct {
	Text string
}

func (t SetNarration) apply(st *domain.LayerState) error {
	if t.Text == "" {
		st.Narration = nil
		return nil
	}
	if st.Narration == nil {
		st.Narration = &domain.NarrationDescriptor{
			Position: st.Settings.NarrationPosition,
			FontSize: st.Settings.NarrationFontSize,
		}
	}
	st.Narration.Text = t.Text
	return nil
}

// SetPageInfo records the scene's page position within the episode, used by
// the page number layer.
type SetPageInfo struct {
	Index int
	Count int
}

func (t SetPageInfo) apply(st *domain.LayerState) error {
	if t.Index < 1 || t.Count < t.Index {
		return fmt.Errorf("page %d of %d out of range", t.Index, t.Count)
	}
	st.PageIndex = t.Index
	st.PageCount = t.Count
	return nil
}

// Toggle names accepted by SetToggle.
const (
	TogglePageNumber  = "page_number"
	ToggleSeriesBadge = "series_badge"
	ToggleWatermark   = "watermark"
	ToggleContinued   = "continued"
)

// SetToggle flips one of the boolean overlay layers.
type SetToggle struct {
	Name string
	On   bool
}

func (t SetToggle) apply(st *domain.LayerState) error {
	switch t.Name {
	case TogglePageNumber:
		st.Settings.PageNumberEnabled = t.On
	case ToggleSeriesBadge:
		st.Settings.SeriesBadgeEnabled = t.On
	case ToggleWatermark:
		st.Settings.WatermarkEnabled = t.On
	case ToggleContinued:
		st.Settings.ContinuedEnabled = t.On
	default:
		return fmt.Errorf("unknown toggle %q", t.Name)
	}
	return nil
}

// Update applies one edit to a scene's state: snapshot for undo, apply,
// bump revision, persist. The base image is never touched.
func (s *Store) Update(ctx context.Context, sceneID string, target UpdateTarget) (domain.LayerState, error) {
	l, err := s.lockScene(ctx, sceneID)
	if err != nil {
		return domain.LayerState{}, err
	}
	defer l.Unlock()

	st, err := s.Get(ctx, sceneID)
	if err != nil {
		return domain.LayerState{}, err
	}

	snap, err := json.Marshal(st)
	if err != nil {
		return domain.LayerState{}, fmt.Errorf("snapshot state: %w", err)
	}

	if err := target.apply(&st); err != nil {
		return domain.LayerState{}, err
	}
	st.Revision++
	st.Dirty = true
	st.UpdatedAt = time.Now().UTC()

	if err := s.records.PutState(ctx, st); err != nil {
		return domain.LayerState{}, err
	}
	s.history.PushSnapshot(undo.Snapshot{SceneID: sceneID, Blob: snap, TS: time.Now()})
	return st, nil
}

// Undo restores the scene's previous layer state snapshot.
func (s *Store) Undo(ctx context.Context, sceneID string) (domain.LayerState, error) {
	l, err := s.lockScene(ctx, sceneID)
	if err != nil {
		return domain.LayerState{}, err
	}
	defer l.Unlock()

	snap, ok := s.history.Undo(sceneID)
	if !ok {
		return domain.LayerState{}, fmt.Errorf("scene %s: nothing to undo", sceneID)
	}
	var st domain.LayerState
	if err := json.Unmarshal(snap.Blob, &st); err != nil {
		return domain.LayerState{}, fmt.Errorf("decode snapshot: %w", err)
	}
	st.Revision++
	st.Dirty = true
	st.UpdatedAt = time.Now().UTC()
	if err := s.records.PutState(ctx, st); err != nil {
		return domain.LayerState{}, err
	}
	return st, nil
}

// Export composes the scene's current state over its base image and writes
// a new artifact. Geometry overflow and omitted blank bubbles are returned
// as warnings next to the artifact, not as failures.
func (s *Store) Export(ctx context.Context, sceneID string) (domain.Artifact, []render.Warning, error) {
	l, err := s.lockScene(ctx, sceneID)
	if err != nil {
		return domain.Artifact{}, nil, err
	}
	defer l.Unlock()
	return s.exportLocked(ctx, sceneID)
}

func (s *Store) exportLocked(ctx context.Context, sceneID string) (domain.Artifact, []render.Warning, error) {
	st, err := s.Get(ctx, sceneID)
	if err != nil {
		return domain.Artifact{}, nil, err
	}

	if _, statErr := os.Stat(st.Base.Path); statErr != nil {
		return domain.Artifact{}, nil, fmt.Errorf("scene %s (%s): %w", sceneID, st.Base.Path, ErrMissingBaseImage)
	}
	base, err := export.LoadBaseImage(st.Base.Path)
	if err != nil {
		return domain.Artifact{}, nil, err
	}

	out, warnings, err := render.Compose(base, st, s.fonts)
	if err != nil {
		return domain.Artifact{}, nil, err
	}

	warnStrings := make([]string, 0, len(warnings))
	for _, w := range warnings {
		warnStrings = append(warnStrings, fmt.Sprintf("%s/%s: %s", w.Layer, w.Kind, w.Detail))
	}

	artifact, err := export.WritePNG(s.outDir, sceneID, st.SceneNumber, out, warnStrings)
	if err != nil {
		return domain.Artifact{}, nil, err
	}
	if err := s.records.PutArtifact(ctx, artifact); err != nil {
		return domain.Artifact{}, nil, err
	}

	st.Dirty = false
	st.UpdatedAt = time.Now().UTC()
	if err := s.records.PutState(ctx, st); err != nil {
		return domain.Artifact{}, nil, err
	}
	s.log.Info("scene exported",
		slog.String("scene", sceneID),
		slog.String("artifact", artifact.Path),
		slog.Int("warnings", len(warnings)))
	return artifact, warnings, nil
}

// Preview renders the scene without writing an artifact. Results are cached
// by (scene, revision); any edit bumps the revision and so invalidates the
// cached image.
func (s *Store) Preview(ctx context.Context, sceneID string) (image.Image, []render.Warning, error) {
	st, err := s.Get(ctx, sceneID)
	if err != nil {
		return nil, nil, err
	}
	key := fmt.Sprintf("%s@%d", sceneID, st.Revision)
	if v, ok := s.previews.Get(key); ok {
		return v.(image.Image), nil, nil
	}
	if _, statErr := os.Stat(st.Base.Path); statErr != nil {
		return nil, nil, fmt.Errorf("scene %s (%s): %w", sceneID, st.Base.Path, ErrMissingBaseImage)
	}
	base, err := export.LoadBaseImage(st.Base.Path)
	if err != nil {
		return nil, nil, err
	}
	out, warnings, err := render.Compose(base, st, s.fonts)
	if err != nil {
		return nil, nil, err
	}
	s.previews.Set(key, out, cache.DefaultExpiration)
	return out, warnings, nil
}

// Delete removes a scene's state and artifact records. Exported files on
// disk are kept; the records just stop tracking them.
func (s *Store) Delete(ctx context.Context, sceneID string) error {
	l, err := s.lockScene(ctx, sceneID)
	if err != nil {
		return err
	}
	defer l.Unlock()

	if _, err := s.Get(ctx, sceneID); err != nil {
		return err
	}
	if err := s.records.DeleteState(ctx, sceneID); err != nil {
		return err
	}
	s.history.ClearScene(sceneID)
	s.log.Info("scene deleted", slog.String("scene", sceneID))
	return nil
}

// List returns all scene states ordered by scene number.
func (s *Store) List(ctx context.Context) ([]domain.LayerState, error) {
	return s.records.ListStates(ctx)
}

// Artifacts returns a scene's export history.
func (s *Store) Artifacts(ctx context.Context, sceneID string) ([]domain.Artifact, error) {
	return s.records.ListArtifacts(ctx, sceneID)
}
