/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/taxmusa/Auto-webtoon/internal/domain"

	"golang.org/x/sync/errgroup"
)

// ExportAll renders the given scenes with at most parallelism running at
// once. Layers within a scene stay sequential; parallelism is across
// scenes only. A failing scene never aborts its siblings: the successful
// artifacts are returned together with a BatchError naming the failures.
func (s *Store) ExportAll(ctx context.Context, sceneIDs []string, parallelism int) ([]domain.Artifact, error) {
	if parallelism <= 0 {
		parallelism = 4
	}

	var (
		mu        sync.Mutex
		artifacts = make(map[string]domain.Artifact)
		failures  = make(map[string]error)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, id := range sceneIDs {
		g.Go(func() error {
			a, warnings, err := s.Export(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[id] = err
				// Collect, don't abort the group.
				return nil
			}
			artifacts[id] = a
			if len(warnings) > 0 {
				s.log.Warn("scene exported with warnings",
					slog.String("scene", id), slog.Int("count", len(warnings)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic output order: follow the request order.
	out := make([]domain.Artifact, 0, len(artifacts))
	seen := make(map[string]bool, len(sceneIDs))
	for _, id := range sceneIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if a, ok := artifacts[id]; ok {
			out = append(out, a)
		}
	}
	if len(failures) > 0 {
		return out, &BatchError{Errs: failures}
	}
	return out, nil
}

// ExportEpisode exports every known scene in scene-number order.
func (s *Store) ExportEpisode(ctx context.Context, parallelism int) ([]domain.Artifact, error) {
	states, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(states, func(i, j int) bool { return states[i].SceneNumber < states[j].SceneNumber })
	ids := make([]string, 0, len(states))
	for _, st := range states {
		ids = append(ids, st.SceneID)
	}
	return s.ExportAll(ctx, ids, parallelism)
}
