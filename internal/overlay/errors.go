/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSceneNotFound is returned for operations on a scene that was
	// never initialized or has been deleted.
	ErrSceneNotFound = errors.New("scene not found")

	// ErrMissingBaseImage is returned by Export when the referenced base
	// artwork does not exist on disk. The export fails fast; nothing is
	// written.
	ErrMissingBaseImage = errors.New("base image missing")

	// ErrConcurrentEdit is surfaced when a scene's exclusive section
	// could not be acquired after internal retries.
	ErrConcurrentEdit = errors.New("concurrent edit conflict")

	// ErrEmptyText classifies a bubble with no visible text. It is
	// reported, never fatal: the bubble is simply omitted at export.
	ErrEmptyText = errors.New("bubble text is empty")
)

// BatchError aggregates per-scene failures from a batch export. Scenes not
// listed completed successfully.
type BatchError struct {
	Errs map[string]error
}

func (e *BatchError) Error() string {
	ids := make([]string, 0, len(e.Errs))
	for id := range e.Errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Errs[id]))
	}
	return fmt.Sprintf("%d scene(s) failed: %s", len(ids), strings.Join(parts, "; "))
}

// Unwrap exposes the underlying errors for errors.Is/As across the batch.
func (e *BatchError) Unwrap() []error {
	out := make([]error, 0, len(e.Errs))
	for _, err := range e.Errs {
		out = append(out, err)
	}
	return out
}
