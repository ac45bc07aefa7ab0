/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleState(sceneID string, n int) domain.LayerState {
	return domain.LayerState{
		SceneID:     sceneID,
		SceneNumber: n,
		Base:        domain.BaseImage{Path: "scene.png", Width: 1080, Height: 1350},
		Bubbles: []domain.BubbleDescriptor{
			{Index: 0, Speaker: "민지", Text: "안녕", Style: domain.StyleRound,
				Geometry: domain.BubbleGeometry{X: 30, Y: 30, MaxWidth: 480, Tail: domain.TailBottomLeft}},
		},
		Settings:  domain.DefaultOverlaySettings(),
		Revision:  1,
		UpdatedAt: time.Now().UTC(),
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st := sampleState("s1", 1)
	if err := s.PutState(ctx, st); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.GetState(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.SceneID != "s1" || len(got.Bubbles) != 1 || got.Bubbles[0].Text != "안녕" {
		t.Fatalf("state mangled: %+v", got)
	}

	// Upsert replaces.
	st.Revision = 2
	st.Bubbles[0].Text = "반가워"
	if err := s.PutState(ctx, st); err != nil {
		t.Fatalf("put again: %v", err)
	}
	got, _, err = s.GetState(ctx, "s1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if got.Revision != 2 || got.Bubbles[0].Text != "반가워" {
		t.Fatalf("upsert did not replace: %+v", got)
	}
}

func TestGetStateUnknownScene(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetState(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("unknown scene reported as present")
	}
}

func TestDeleteStateRemovesArtifacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.PutState(ctx, sampleState("s1", 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	a := domain.Artifact{ID: "a1", SceneID: "s1", Path: "out/scene_1_a1.png", CreatedAt: time.Now().UTC()}
	if err := s.PutArtifact(ctx, a); err != nil {
		t.Fatalf("put artifact: %v", err)
	}

	if err := s.DeleteState(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetState(ctx, "s1"); ok {
		t.Fatalf("state survived delete")
	}
	arts, err := s.ListArtifacts(ctx, "s1")
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(arts) != 0 {
		t.Fatalf("artifacts survived delete: %+v", arts)
	}
}

func TestListStatesOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, n := range []int{3, 1, 2} {
		st := sampleState("s"+string(rune('0'+n)), n)
		if err := s.PutState(ctx, st); err != nil {
			t.Fatalf("put %d: %v", n, err)
		}
	}
	states, err := s.ListStates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("expected 3 states: %d", len(states))
	}
	for i, st := range states {
		if st.SceneNumber != i+1 {
			t.Fatalf("order wrong at %d: %+v", i, st)
		}
	}
}

func TestArtifactsAccumulate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i, id := range []string{"a1", "a2"} {
		a := domain.Artifact{
			ID: id, SceneID: "s1", Path: "out/scene_1_" + id + ".png",
			Warnings:  []string{"geometry_overflow"},
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := s.PutArtifact(ctx, a); err != nil {
			t.Fatalf("put artifact: %v", err)
		}
	}
	arts, err := s.ListArtifacts(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(arts) != 2 || arts[0].ID != "a1" || arts[1].ID != "a2" {
		t.Fatalf("artifacts wrong: %+v", arts)
	}
	if len(arts[0].Warnings) != 1 || arts[0].Warnings[0] != "geometry_overflow" {
		t.Fatalf("warnings lost: %+v", arts[0])
	}
}

func TestReopenKeepsData(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	s, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.PutState(ctx, sampleState("s1", 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := os.Stat(StatePath(root)); err != nil {
		t.Fatalf("state file missing: %v", err)
	}

	s2, err := Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, ok, err := s2.GetState(ctx, "s1"); err != nil || !ok {
		t.Fatalf("state lost across reopen: ok=%v err=%v", ok, err)
	}
}
