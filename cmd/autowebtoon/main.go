/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/taxmusa/Auto-webtoon/internal/config"
	"github.com/taxmusa/Auto-webtoon/internal/crash"
	"github.com/taxmusa/Auto-webtoon/internal/domain"
	"github.com/taxmusa/Auto-webtoon/internal/export"
	applog "github.com/taxmusa/Auto-webtoon/internal/log"
	"github.com/taxmusa/Auto-webtoon/internal/overlay"
	"github.com/taxmusa/Auto-webtoon/internal/publish"
	"github.com/taxmusa/Auto-webtoon/internal/script"
	"github.com/taxmusa/Auto-webtoon/internal/storage"
	"github.com/taxmusa/Auto-webtoon/internal/telemetry"
	"github.com/taxmusa/Auto-webtoon/internal/textlayout"
	"github.com/taxmusa/Auto-webtoon/internal/version"
)

func usage() {
	fmt.Println("Auto Webtoon — text overlay and layer-state engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  autowebtoon version|-v|--version                 Show version")
	fmt.Println("  autowebtoon init <dir>                           Create a workspace at <dir>")
	fmt.Println("  autowebtoon seed <dir> <script.json> [--image-dir d]  Seed scene states from a script")
	fmt.Println("  autowebtoon show <dir> [sceneID]                 Print scene state(s)")
	fmt.Println("  autowebtoon set <dir> <sceneID> text <i> <text>  Edit bubble text")
	fmt.Println("  autowebtoon set <dir> <sceneID> style <i> <name> Edit bubble style")
	fmt.Println("  autowebtoon set <dir> <sceneID> narration <text> Edit narration (empty removes)")
	fmt.Println("  autowebtoon set <dir> <sceneID> toggle <name> on|off  Flip a layer toggle")
	fmt.Println("  autowebtoon undo <dir> <sceneID>                 Undo the last edit")
	fmt.Println("  autowebtoon export <dir> <sceneID>               Export one scene")
	fmt.Println("  autowebtoon export-all <dir> [--parallel n]      Export every scene")
	fmt.Println("  autowebtoon pdf <dir> <out.pdf>                  Bundle exported pages into a PDF")
	fmt.Println("  autowebtoon publish <dir> <title> [--caption c]  Publish exported pages")
	fmt.Println("  autowebtoon delete <dir> <sceneID>               Remove a scene's overlay state")
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

// openStore opens the workspace records and font library. Fonts load from
// the configured fonts dir; with no font files present the built-in face is
// used so previews still work.
func openStore(l *slog.Logger, root string, cfg config.AppConfig) (*overlay.Store, func()) {
	var records storage.RecordStore
	if dsn := storage.PGDSNFromEnv(); dsn != "" {
		pg, err := storage.OpenPG(context.Background(), dsn)
		if err != nil {
			fail(l, "postgres open failed", err)
		}
		records = pg
	} else {
		db, err := storage.Open(root)
		if err != nil {
			fail(l, "workspace open failed", err)
		}
		records = db
	}

	var fonts textlayout.Provider = textlayout.BasicProvider{}
	fontsDir := cfg.Paths.FontsDir
	if !filepath.IsAbs(fontsDir) {
		fontsDir = filepath.Join(root, fontsDir)
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.LoadDir(fontsDir); err == nil && lib.Len() > 0 {
		fonts = textlayout.OTProvider{Lib: lib}
	} else {
		l.Warn("no fonts loaded, using built-in face", slog.String("dir", fontsDir), slog.Any("err", err))
	}

	outDir := cfg.Paths.OutputDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}
	return overlay.NewStore(records, fonts, outDir), func() { _ = records.Close() }
}

func baseImageFor(imageDir string, n int) (domain.BaseImage, error) {
	path := filepath.Join(imageDir, fmt.Sprintf("scene_%d.png", n))
	f, err := os.Open(path)
	if err != nil {
		return domain.BaseImage{}, err
	}
	defer f.Close()
	cfgImg, err := png.DecodeConfig(f)
	if err != nil {
		return domain.BaseImage{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return domain.BaseImage{Path: path, Width: cfgImg.Width, Height: cfgImg.Height}, nil
}

func sceneKey(n int) string { return fmt.Sprintf("scene-%d", n) }

func printState(st domain.LayerState) {
	fmt.Printf("%s  #%d  %q  rev %d", st.SceneID, st.SceneNumber, st.Title, st.Revision)
	if st.Dirty {
		fmt.Print("  (unsaved edits)")
	}
	fmt.Println()
	for _, b := range st.Bubbles {
		fmt.Printf("  [%d] %s (%s, %s): %q at (%.0f, %.0f) maxW %.0f\n",
			b.Index, b.Speaker, b.Style, b.Position, b.Text, b.Geometry.X, b.Geometry.Y, b.Geometry.MaxWidth)
	}
	if st.Narration != nil {
		fmt.Printf("  narration (%s): %q\n", st.Narration.Position, st.Narration.Text)
	}
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	telemetry.Default()

	var workspaceRoot string
	defer func() { crash.Recover(workspaceRoot) }()

	args := os.Args
	if len(args) < 2 {
		usage()
		return
	}

	cfg, token, err := config.Load()
	if err != nil {
		fail(l, "config load failed", err)
	}
	ctx := context.Background()

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Auto Webtoon — text overlay and layer-state engine")
		fmt.Println(version.String())
		return

	case "init":
		if len(args) < 3 {
			fmt.Println("init requires <dir>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		db, err := storage.Open(abs)
		if err != nil {
			fail(l, "init failed", err)
		}
		_ = db.Close()
		fmt.Println("Created workspace at", abs)
		return

	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		imageDir := fs.String("image-dir", "", "directory with scene_<n>.png base images")
		if len(args) < 4 {
			fmt.Println("seed requires <dir> and <script.json>")
			usage()
			os.Exit(2)
		}
		_ = fs.Parse(args[4:])
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		if *imageDir == "" {
			*imageDir = filepath.Join(abs, "images")
		}

		ep, err := script.ParseFile(args[3])
		if err != nil {
			fail(l, "script parse failed", err)
		}
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()

		for i, sc := range ep.Scenes {
			base, err := baseImageFor(*imageDir, sc.Number)
			if err != nil {
				fail(l, "base image missing", err)
			}
			st, err := s.Initialize(ctx, sceneKey(sc.Number), sc, base, cfg.Overlay)
			if err != nil {
				fail(l, "seed failed", err)
			}
			if _, err := s.Update(ctx, st.SceneID, overlay.SetPageInfo{Index: i + 1, Count: len(ep.Scenes)}); err != nil {
				fail(l, "page info failed", err)
			}
		}
		telemetry.EpisodeSeeded(len(ep.Scenes))
		fmt.Printf("Seeded %d scenes from %q\n", len(ep.Scenes), ep.Title)
		return

	case "show":
		if len(args) < 3 {
			fmt.Println("show requires <dir>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()
		if len(args) >= 4 {
			st, err := s.Get(ctx, args[3])
			if err != nil {
				fail(l, "scene lookup failed", err)
			}
			printState(st)
			return
		}
		states, err := s.List(ctx)
		if err != nil {
			fail(l, "list failed", err)
		}
		for _, st := range states {
			printState(st)
		}
		return

	case "set":
		if len(args) < 5 {
			fmt.Println("set requires <dir> <sceneID> <field> ...")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		sceneID := args[3]
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()

		var target overlay.UpdateTarget
		switch args[4] {
		case "text":
			if len(args) < 7 {
				fmt.Println("set text requires <index> and <text>")
				os.Exit(2)
			}
			idx, err := strconv.Atoi(args[5])
			if err != nil {
				fail(l, "bad bubble index", err)
			}
			target = overlay.SetDialogueText{Index: idx, Text: args[6]}
		case "style":
			if len(args) < 7 {
				fmt.Println("set style requires <index> and <style>")
				os.Exit(2)
			}
			idx, err := strconv.Atoi(args[5])
			if err != nil {
				fail(l, "bad bubble index", err)
			}
			target = overlay.SetDialogueStyle{Index: idx, Style: domain.BubbleStyleName(args[6])}
		case "narration":
			text := ""
			if len(args) >= 6 {
				text = args[5]
			}
			target = overlay.SetNarration{Text: text}
		case "toggle":
			if len(args) < 7 {
				fmt.Println("set toggle requires <name> and on|off")
				os.Exit(2)
			}
			target = overlay.SetToggle{Name: args[5], On: args[6] == "on"}
		default:
			fmt.Println("unknown field:", args[4])
			usage()
			os.Exit(2)
		}

		st, err := s.Update(ctx, sceneID, target)
		if err != nil {
			fail(l, "edit failed", err)
		}
		printState(st)
		return

	case "undo":
		if len(args) < 4 {
			fmt.Println("undo requires <dir> and <sceneID>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()
		st, err := s.Undo(ctx, args[3])
		if err != nil {
			fail(l, "undo failed", err)
		}
		printState(st)
		return

	case "export":
		if len(args) < 4 {
			fmt.Println("export requires <dir> and <sceneID>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()
		artifact, warnings, err := s.Export(ctx, args[3])
		if err != nil {
			fail(l, "export failed", err)
		}
		fmt.Println("Exported", artifact.Path)
		for _, w := range warnings {
			fmt.Printf("  warning %s/%s: %s\n", w.Layer, w.Kind, w.Detail)
		}
		telemetry.SceneExported(len(warnings))
		return

	case "export-all":
		fs := flag.NewFlagSet("export-all", flag.ExitOnError)
		parallel := fs.Int("parallel", cfg.Export.Parallelism, "concurrent scene exports")
		if len(args) < 3 {
			fmt.Println("export-all requires <dir>")
			usage()
			os.Exit(2)
		}
		_ = fs.Parse(args[3:])
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()

		artifacts, err := s.ExportEpisode(ctx, *parallel)
		for _, a := range artifacts {
			fmt.Println("Exported", a.Path)
			for _, w := range a.Warnings {
				fmt.Println("  warning", w)
			}
		}
		if err != nil {
			var be *overlay.BatchError
			if errors.As(err, &be) {
				fmt.Printf("%d scene(s) failed:\n", len(be.Errs))
			}
			fail(l, "episode export incomplete", err)
		}
		telemetry.EpisodeExported(len(artifacts))
		fmt.Printf("Exported %d scenes\n", len(artifacts))
		return

	case "pdf":
		if len(args) < 4 {
			fmt.Println("pdf requires <dir> and <out.pdf>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()
		artifacts, err := latestArtifacts(ctx, s)
		if err != nil {
			fail(l, "collect artifacts failed", err)
		}
		if err := export.WriteEpisodePDF(artifacts, args[3], export.PDFOptions{Title: filepath.Base(abs)}); err != nil {
			fail(l, "pdf failed", err)
		}
		fmt.Println("Wrote", args[3])
		return

	case "publish":
		fs := flag.NewFlagSet("publish", flag.ExitOnError)
		caption := fs.String("caption", "", "episode caption")
		if len(args) < 4 {
			fmt.Println("publish requires <dir> and <title>")
			usage()
			os.Exit(2)
		}
		_ = fs.Parse(args[4:])
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()
		artifacts, err := latestArtifacts(ctx, s)
		if err != nil {
			fail(l, "collect artifacts failed", err)
		}
		client := publish.NewClient(cfg.Publish.BaseURL, token)
		receipt, err := client.PublishEpisode(ctx, args[3], *caption, artifacts)
		if err != nil {
			fail(l, "publish failed", err)
		}
		telemetry.EpisodePublished(len(artifacts))
		fmt.Println("Published:", receipt.URL)
		return

	case "delete":
		if len(args) < 4 {
			fmt.Println("delete requires <dir> and <sceneID>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		workspaceRoot = abs
		s, closeStore := openStore(l, abs, cfg)
		defer closeStore()
		if err := s.Delete(ctx, args[3]); err != nil {
			fail(l, "delete failed", err)
		}
		fmt.Println("Deleted", args[3])
		return
	}

	usage()
}

// latestArtifacts returns the newest export of every scene in page order.
func latestArtifacts(ctx context.Context, s *overlay.Store) ([]domain.Artifact, error) {
	states, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Artifact, 0, len(states))
	for _, st := range states {
		arts, err := s.Artifacts(ctx, st.SceneID)
		if err != nil {
			return nil, err
		}
		if len(arts) == 0 {
			return nil, fmt.Errorf("scene %s has no exports; run export-all first", st.SceneID)
		}
		out = append(out, arts[len(arts)-1])
	}
	return out, nil
}
