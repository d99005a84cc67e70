// assetcheck inspects and packs GRF asset archives and checks that every
// manifest item loads.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/assets"
	"github.com/Faultbox/roomview/internal/config"
	"github.com/Faultbox/roomview/internal/engine/model"
	"github.com/Faultbox/roomview/internal/engine/texture"
	"github.com/Faultbox/roomview/internal/engine/video"
	"github.com/Faultbox/roomview/internal/logger"
	"github.com/Faultbox/roomview/internal/resources"
	"github.com/Faultbox/roomview/pkg/grf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "pack":
		cmdPack(args)
	case "check":
		cmdCheck(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`assetcheck - room viewer asset utility

Usage:
  assetcheck <command> [options]

Commands:
  info <file.grf>                     Show archive information
  list <file.grf> [pattern]           List files (optional glob pattern)
  extract <file.grf> <path> [output]  Extract file(s) to directory
  pack <file.grf> <dir>               Pack a directory into an archive
  check [options] <manifest.yaml>     Load every manifest item and report failures

Examples:
  assetcheck pack room.grf ./assets
  assetcheck list room.grf "*.glb"
  assetcheck extract room.grf models/chair.glb ./output
  assetcheck check -root assets -archive room.grf assets/manifest.yaml`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openArchive(path string) *grf.Archive {
	archive, err := grf.Open(path)
	if err != nil {
		fail("Error: %v", err)
	}
	return archive
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fail("Usage: assetcheck info <file.grf>")
	}

	archive := openArchive(args[0])
	defer archive.Close()

	files := archive.List()

	// Count by extension
	extCount := make(map[string]int)
	var packed, unpacked uint64
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		if ext == "" {
			ext = "(no ext)"
		}
		extCount[ext]++
		if e, ok := archive.Stat(f); ok {
			packed += uint64(e.CompressedSize)
			unpacked += uint64(e.UncompressedSize)
		}
	}

	fmt.Printf("Archive: %s\n", args[0])
	fmt.Printf("Files:   %d\n", len(files))
	fmt.Printf("Size:    %.2f MB (%.2f MB packed)\n", mb(unpacked), mb(packed))
	fmt.Println()
	fmt.Println("Files by type:")

	type extStat struct {
		ext   string
		count int
	}
	var stats []extStat
	for ext, count := range extCount {
		stats = append(stats, extStat{ext, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].ext < stats[j].ext
	})

	for _, s := range stats {
		fmt.Printf("  %-10s %d\n", s.ext, s.count)
	}
}

func mb(n uint64) float64 {
	return float64(n) / (1024 * 1024)
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: assetcheck list <file.grf> [pattern]")
	}

	archive := openArchive(fs.Arg(0))
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range archive.List() {
		if pattern != "" && !matches(pattern, f) {
			continue
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}

// matches reports whether pattern globs the base name or appears in path.
func matches(pattern, path string) bool {
	lower := strings.ToLower(path)
	matched, _ := filepath.Match(pattern, filepath.Base(lower))
	return matched || strings.Contains(lower, pattern)
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fail("Usage: assetcheck extract <file.grf> <path> [output_dir]")
	}

	filePath := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive := openArchive(fs.Arg(0))
	defer archive.Close()

	if strings.Contains(filePath, "*") {
		extractPattern(archive, strings.ToLower(filePath), outputDir)
		return
	}

	data, err := archive.Read(filePath)
	if err != nil {
		fail("Error reading file: %v", err)
	}

	outputPath := filepath.Join(outputDir, filepath.Base(filePath))
	if err := writeFile(outputPath, data); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
}

func extractPattern(archive *grf.Archive, pattern, outputDir string) {
	extracted := 0
	for _, f := range archive.List() {
		matched, _ := filepath.Match(pattern, filepath.Base(f))
		if !matched {
			continue
		}

		data, err := archive.Read(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", f, err)
			continue
		}

		// Preserve directory structure
		outputPath := filepath.Join(outputDir, filepath.FromSlash(f))
		if err := writeFile(outputPath, data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Printf("Extracted: %s\n", outputPath)
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func cmdPack(args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fail("Usage: assetcheck pack <file.grf> <dir>")
	}
	out, dir := fs.Arg(0), fs.Arg(1)

	files, err := collect(dir)
	if err != nil {
		fail("Error: %v", err)
	}

	f, err := os.Create(out)
	if err != nil {
		fail("Error: %v", err)
	}
	if err := grf.Write(f, files); err != nil {
		f.Close()
		os.Remove(out)
		fail("Error packing: %v", err)
	}
	if err := f.Close(); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Packed %d files into %s\n", len(files), out)
}

// collect reads every regular file under dir, named relative to dir.
func collect(dir string) ([]grf.File, error) {
	var files []grf.File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, grf.File{Name: filepath.ToSlash(rel), Data: data})
		return nil
	})
	return files, err
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	root := fs.String("root", ".", "Filesystem root for relative sources")
	decoder := fs.String("decoder", model.DefaultDecoderBinary, "Compressed-geometry decoder binary or directory")
	concurrency := fs.Int("concurrency", 4, "Max loads in flight (0 = unbounded)")
	verbose := fs.Bool("v", false, "Log every load")
	var archives stringList
	fs.Var(&archives, "archive", "GRF archive to mount (repeatable)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: assetcheck check [options] <manifest.yaml>")
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fail("Logger error: %v", err)
	}
	defer logger.Sync()
	log := logger.Log

	manifest, err := config.LoadManifest(fs.Arg(0))
	if err != nil {
		fail("Error: %v", err)
	}
	descs := resources.FromManifest(manifest.Items())

	mgr := assets.NewManager(*root, log.Named("assets"))
	defer mgr.Close()
	for _, a := range archives {
		if err := mgr.AddArchive(a); err != nil {
			fail("Error: %v", err)
		}
	}

	store := resources.New(resources.Loaders{
		resources.KindTexture: resources.TextureLoader(texture.NewLoader(mgr, texture.WithLogger(log.Named("texture")))),
		resources.KindModel: resources.ModelLoader(model.NewLoader(mgr,
			model.NewExecDecoder(*decoder, log.Named("draco")), log.Named("model"))),
		resources.KindVideo: resources.VideoLoader(video.NewLoader(mgr,
			video.WithAutoplay(false), video.WithLogger(log.Named("video")))),
	}, resources.WithLogger(log.Named("resources")), resources.WithConcurrency(*concurrency))
	defer store.Dispose()

	store.OnProgress(func(p resources.Progress) {
		if p.Item != nil {
			log.Debug("settled", zap.String("name", p.Item.Name), zap.Float64("percent", p.Percent))
		}
	})
	loaded := store.Load(context.Background(), descs)

	failed := 0
	for _, d := range descs {
		status := "ok"
		if _, ok := loaded[d.Name]; !ok {
			status = "FAIL"
			failed++
		}
		fmt.Printf("%-5s %-8s %-32s %s\n", status, d.Kind, d.Name, d.Source)
	}
	fmt.Printf("\n%d/%d items loaded\n", len(descs)-failed, len(descs))
	if failed > 0 {
		store.Dispose()
		logger.Sync()
		os.Exit(1)
	}
}
