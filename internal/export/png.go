/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes render artifacts: one PNG per scene export and an
// episode PDF compiled from exported scenes.
package export

import (
	"fmt"
	"image"
	_ "image/jpeg" // base artwork may be JPEG
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/taxmusa/Auto-webtoon/internal/domain"

	"github.com/google/uuid"
)

// WritePNG writes the composited image as a fresh artifact under outDir.
// Every call produces a new file named scene_<n>_<uuid>.png so exports never
// overwrite a prior artifact or the base image.
func WritePNG(outDir string, sceneID string, sceneNumber int, img image.Image, warnings []string) (domain.Artifact, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return domain.Artifact{}, fmt.Errorf("ensure out dir: %w", err)
	}
	id := uuid.NewString()
	path := filepath.Join(outDir, fmt.Sprintf("scene_%d_%s.png", sceneNumber, id))

	f, err := os.Create(path)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return domain.Artifact{}, fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return domain.Artifact{}, fmt.Errorf("close png: %w", err)
	}

	return domain.Artifact{
		ID:        id,
		SceneID:   sceneID,
		Path:      path,
		Warnings:  warnings,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// LoadBaseImage reads and decodes a scene's base artwork.
func LoadBaseImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open base image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode base image %s: %w", path, err)
	}
	return img, nil
}
