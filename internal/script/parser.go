/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script parses episode script documents. Scripts are JSON and are
// validated against an embedded schema before decoding, so a typo in a field
// name fails loudly instead of silently dropping a dialogue.
package script

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/taxmusa/Auto-webtoon/internal/domain"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

const episodeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Webtoon episode script",
  "type": "object",
  "required": ["title", "scenes"],
  "additionalProperties": false,
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "series": {"$ref": "#/definitions/series"},
    "scenes": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/definitions/scene"}
    }
  },
  "definitions": {
    "series": {
      "type": "object",
      "required": ["current", "total"],
      "additionalProperties": false,
      "properties": {
        "current": {"type": "integer", "minimum": 1},
        "total": {"type": "integer", "minimum": 1}
      }
    },
    "scene": {
      "type": "object",
      "required": ["sceneNumber"],
      "additionalProperties": false,
      "properties": {
        "sceneNumber": {"type": "integer", "minimum": 1},
        "title": {"type": "string"},
        "dialogues": {
          "type": "array",
          "items": {"$ref": "#/definitions/dialogue"}
        },
        "narration": {"type": "string"},
        "series": {"$ref": "#/definitions/series"},
        "lastOfPart": {"type": "boolean"}
      }
    },
    "dialogue": {
      "type": "object",
      "required": ["speaker", "text"],
      "additionalProperties": false,
      "properties": {
        "speaker": {"type": "string", "minLength": 1},
        "text": {"type": "string"},
        "side": {"enum": ["left", "right"]},
        "emotion": {"type": "string"},
        "style": {"enum": ["round", "square", "thought"]},
        "position": {"enum": ["auto", "fixed"]},
        "fontSize": {"type": "integer", "minimum": 8}
      }
    }
  }
}`

// Parse validates and decodes an episode script document.
// After decoding, scenes are sorted by number, duplicate numbers are
// rejected, dialogues without an explicit side alternate left/right, and the
// final scene of a continued series is marked LastOfPart.
func Parse(data []byte) (Episode, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(episodeSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return Episode{}, fmt.Errorf("validate script: %w", err)
	}
	if !result.Valid() {
		ve := &ValidationError{}
		for _, e := range result.Errors() {
			ve.Issues = append(ve.Issues, Issue{Field: e.Field(), Message: e.Description()})
		}
		return Episode{}, ve
	}

	var ep Episode
	if err := json.Unmarshal(data, &ep); err != nil {
		return Episode{}, fmt.Errorf("decode script: %w", err)
	}
	if err := normalize(&ep); err != nil {
		return Episode{}, err
	}
	return ep, nil
}

// ParseFile reads and parses a script file from disk.
func ParseFile(path string) (Episode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Episode{}, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

func normalize(ep *Episode) error {
	sort.SliceStable(ep.Scenes, func(i, j int) bool {
		return ep.Scenes[i].Number < ep.Scenes[j].Number
	})

	seen := map[int]bool{}
	for i := range ep.Scenes {
		sc := &ep.Scenes[i]
		if seen[sc.Number] {
			return &ValidationError{Issues: []Issue{{
				Field:   "scenes",
				Message: fmt.Sprintf("duplicate scene number %d", sc.Number),
			}}}
		}
		seen[sc.Number] = true

		if sc.Series == nil {
			sc.Series = ep.Series
		}

		// Dialogues keep script order; unspecified sides alternate so
		// back-and-forth conversations land on opposite columns.
		next := domain.SideLeft
		for j := range sc.Dialogues {
			d := &sc.Dialogues[j]
			if d.Side == "" {
				d.Side = next
			}
			if d.Side == domain.SideLeft {
				next = domain.SideRight
			} else {
				next = domain.SideLeft
			}
		}
	}

	// The closing scene of a non-final part carries the continued marker.
	if n := len(ep.Scenes); n > 0 {
		last := &ep.Scenes[n-1]
		if last.Series != nil && last.Series.Current < last.Series.Total {
			last.LastOfPart = true
		}
	}
	return nil
}
