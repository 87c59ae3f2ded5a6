// mshtool is a CLI utility for working with Battlezone II .msh models.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/qmuntal/gltf"

	"github.com/GrizzlyOne95/bz2msh/internal/config"
	"github.com/GrizzlyOne95/bz2msh/internal/logger"
	"github.com/GrizzlyOne95/bz2msh/pkg/msh"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "validate", "check":
		cmdValidate(cfg, args)
	case "dump":
		cmdDump(cfg, args)
	case "gltf", "convert":
		cmdGltf(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mshtool - Battlezone II .msh model utility

Usage:
  mshtool [flags] <command> [arguments]

Commands:
  info <file.msh>              Show model structure and diagnostics
  validate <file.msh...>       Parse files and report errors per file
  dump <file.msh>              Dump the parsed scene graph
  gltf <in.msh> <out.gltf>     Convert a model to glTF 2.0

Flags:
  -config <path>               Config file (default ./mshtool.yaml)
  -debug                       Enable debug logging
  -absolute-indexing           Legacy indexing default for files without a mode chunk
  -no-animations               Skip animation tracks
  -glb                         Write binary glTF

Examples:
  mshtool info avtank00.msh
  mshtool validate objects/*.msh
  mshtool -glb gltf avtank00.msh avtank00.glb`)
}

func parseOptions(cfg *config.Config) msh.Options {
	return msh.Options{
		AssumeAbsoluteIndexing: cfg.Import.AbsoluteIndexing,
		SkipAnimations:         !cfg.Import.Animations,
	}
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mshtool info <file.msh>")
		os.Exit(1)
	}

	scene, err := msh.ParseFile(args[0], parseOptions(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", args[0], err)
		os.Exit(1)
	}

	fmt.Printf("File:     %s\n", args[0])
	fmt.Printf("Version:  %s\n", scene.Version)
	fmt.Printf("Nodes:    %d (%d roots)\n", scene.NodeCount(), len(scene.Roots))
	fmt.Printf("Vertices: %d\n", scene.TotalVertexCount())
	fmt.Printf("Faces:    %d\n", scene.TotalFaceCount())
	fmt.Println()

	fmt.Println("Hierarchy:")
	for _, root := range scene.Roots {
		printNode(root, 1)
	}

	materials := collectMaterials(scene)
	if len(materials) > 0 {
		fmt.Println()
		fmt.Println("Materials:")
		for _, m := range materials {
			if m.TexturePathHint != "" {
				fmt.Printf("  %-24s texture hint %q\n", m.Name, m.TexturePathHint)
			} else {
				fmt.Printf("  %s\n", m.Name)
			}
		}
	}

	printDiagnostics(scene.Diagnostics)
}

func printNode(n *msh.Node, depth int) {
	indent := strings.Repeat("  ", depth)

	attrs := []string{}
	if n.Global {
		attrs = append(attrs, "global")
	}
	if n.Geometry != nil {
		if n.Geometry.Invalid {
			attrs = append(attrs, "invalid geometry")
		} else {
			attrs = append(attrs, fmt.Sprintf("%d verts, %d faces, %s indices",
				len(n.Geometry.Vertices), len(n.Geometry.Faces), n.IndexMode))
		}
	}
	if n.Animation != nil {
		attrs = append(attrs, fmt.Sprintf("%d+%d keys",
			len(n.Animation.TranslationKeys), len(n.Animation.RotationKeys)))
	}

	if len(attrs) > 0 {
		fmt.Printf("%s%s (%s)\n", indent, n.Name, strings.Join(attrs, "; "))
	} else {
		fmt.Printf("%s%s\n", indent, n.Name)
	}
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}

func collectMaterials(scene *msh.SceneGraph) []msh.MaterialRef {
	seen := make(map[string]bool)
	var out []msh.MaterialRef
	for _, n := range scene.Nodes() {
		for _, ref := range n.MaterialRefs {
			if !seen[ref.Name] {
				seen[ref.Name] = true
				out = append(out, ref)
			}
		}
	}
	return out
}

func printDiagnostics(diags []msh.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("Diagnostics (%d):\n", len(diags))
	for _, d := range diags {
		fmt.Printf("  %s\n", d)
	}
}

// cmdValidate parses each file independently. Files are independent
// parses with no shared state, so they are checked concurrently.
func cmdValidate(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mshtool validate <file.msh...>")
		os.Exit(1)
	}

	type result struct {
		path  string
		scene *msh.SceneGraph
		err   error
	}

	results := make([]result, len(args))
	sem := make(chan struct{}, 4)
	var wg sync.WaitGroup
	for i, path := range args {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			scene, err := msh.ParseFile(path, parseOptions(cfg))
			results[i] = result{path: path, scene: scene, err: err}
		}(i, path)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Printf("%-40s FAILED: %v\n", r.path, r.err)
			continue
		}
		summary := diagSummary(r.scene.Diagnostics)
		if summary == "" {
			fmt.Printf("%-40s ok (%d nodes)\n", r.path, r.scene.NodeCount())
		} else {
			fmt.Printf("%-40s ok (%d nodes; %s)\n", r.path, r.scene.NodeCount(), summary)
		}
	}

	logger.Sugar.Infof("validated %d files, %d failed", len(args), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func diagSummary(diags []msh.Diagnostic) string {
	counts := make(map[msh.Severity]int)
	for _, d := range diags {
		counts[d.Severity]++
	}
	var parts []string
	for _, sev := range []msh.Severity{msh.SeverityError, msh.SeverityWarning, msh.SeverityInfo} {
		if counts[sev] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[sev], sev))
		}
	}
	return strings.Join(parts, ", ")
}

func cmdDump(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mshtool dump <file.msh>")
		os.Exit(1)
	}

	scene, err := msh.ParseFile(args[0], parseOptions(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", args[0], err)
		os.Exit(1)
	}

	sc := spew.NewDefaultConfig()
	sc.DisableCapacities = true
	sc.DisablePointerAddresses = true
	sc.Dump(scene)
}

func cmdGltf(cfg *config.Config, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: mshtool gltf <in.msh> <out.gltf|out.glb>")
		os.Exit(1)
	}

	scene, err := msh.ParseFile(args[0], parseOptions(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", args[0], err)
		os.Exit(1)
	}
	for _, d := range scene.Diagnostics {
		logger.Sugar.Debugf("%s: %s", args[0], d)
	}

	doc, err := scene.ExportGLTF()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: exporting %s: %v\n", args[0], err)
		os.Exit(1)
	}

	out := args[1]
	binary := cfg.Export.Binary || strings.EqualFold(filepath.Ext(out), ".glb")
	if binary {
		err = gltf.SaveBinary(doc, out)
	} else {
		err = gltf.Save(doc, out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: writing %s: %v\n", out, err)
		os.Exit(1)
	}

	logger.Sugar.Infof("wrote %s (%d nodes, %d meshes)", out, len(doc.Nodes), len(doc.Meshes))
}
