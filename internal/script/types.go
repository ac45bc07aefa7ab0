/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

// Episode is one webtoon episode script: a title plus ordered scenes.
// Series info may be given once at the top level; Parse propagates it to
// every scene that does not carry its own.
type Episode struct {
	Title  string             `json:"title"`
	Scenes []domain.Scene     `json:"scenes"`
	Series *domain.SeriesInfo `json:"series,omitempty"`
}

// Issue is one schema violation with its JSON path.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// ValidationError reports why a script document was rejected. All schema
// violations are collected so the author can fix them in one pass.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid script (%d issues)", len(e.Issues))
	for _, i := range e.Issues {
		b.WriteString("\n  ")
		b.WriteString(i.String())
	}
	return b.String()
}
