//go:build ignore

// build.go - SDG Water build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, build, test, run, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	version = "1.0.0"
	module  = "sdgwater"
)

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	Race    bool
	DataDir string
}

var (
	rootDir string
	distDir string

	// key = source dir under cmd/, value = output binary name
	executables = map[string]string{
		"sdgwater": "sdgwater",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err != nil {
		panic("build.go must be run from the module root")
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	race := flag.Bool("race", true, "Run tests with the race detector")
	dataDir := flag.String("data", ".", "Input directory passed to the run target")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	if runtime.GOOS == "windows" {
		enableWindowsColors()
		for name, exe := range executables {
			executables[name] = exe + ".exe"
		}
	}

	printHeader()

	ctx := &BuildContext{Verbose: *verbose, Race: *race, DataDir: *dataDir}
	start := time.Now()

	switch *target {
	case "all":
		runTests(ctx)
		buildAll(ctx)
	case "build":
		buildAll(ctx)
	case "test":
		runTests(ctx)
	case "run":
		buildAll(ctx)
		runPipeline(ctx)
	case "clean":
		clean(ctx.Verbose)
	default:
		printError(fmt.Sprintf("Unknown target: %s", *target))
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Target %s finished in %s", *target, time.Since(start).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "        SDG Water - Build System          " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func enableWindowsColors() {
	// Enable ANSI color codes on Windows
	cmd := exec.Command("cmd", "/c", "echo", "")
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	_ = cmd.Run()
}

func buildAll(ctx *BuildContext) {
	printInfo("Building all components...")
	if err := os.MkdirAll(distDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create dist directory: %v", err))
		os.Exit(1)
	}
	for name := range executables {
		buildExecutable(name, ctx)
	}
}

func buildExecutable(name string, ctx *BuildContext) {
	exeName, ok := executables[name]
	if !ok {
		printError(fmt.Sprintf("Unknown executable: %s", name))
		os.Exit(1)
	}

	printInfo(fmt.Sprintf("Building %s...", name))

	outputPath := filepath.Join(distDir, exeName)
	ldflags := fmt.Sprintf("-s -w -X main.Version=%s -X main.BuildTime=%s",
		version, time.Now().Format(time.RFC3339))

	args := []string{"build"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "-ldflags", ldflags, "-o", outputPath, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	if ctx.Verbose {
		fmt.Printf("Running from %s: go %s\n", rootDir, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		sizeMB := float64(info.Size()) / 1024 / 1024
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, sizeMB))
	}
}

func runTests(ctx *BuildContext) {
	printInfo("Running Go tests...")
	args := []string{"test"}
	if ctx.Race {
		args = append(args, "-race")
	}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

// runPipeline runs the freshly built binary against ctx.DataDir
func runPipeline(ctx *BuildContext) {
	exe := filepath.Join(distDir, executables["sdgwater"])
	printInfo(fmt.Sprintf("Running %s against %s...", module, ctx.DataDir))

	cmd := exec.Command(exe, "-dir", ctx.DataDir)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Pipeline run failed: %v", err))
		os.Exit(1)
	}
}

func clean(verbose bool) {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
	} else if verbose {
		printInfo(fmt.Sprintf("Removed %s", distDir))
	}

	for _, pattern := range []string{"logs/*.log", "*.prom"} {
		matches, err := filepath.Glob(filepath.Join(rootDir, pattern))
		if err != nil {
			printWarning(fmt.Sprintf("Bad pattern %s: %v", pattern, err))
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil {
				printWarning(fmt.Sprintf("Failed to remove %s: %v", m, err))
			} else if verbose {
				printInfo(fmt.Sprintf("Removed %s", m))
			}
		}
	}
	printSuccess("Build artifacts cleaned")
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v] [-race=false] [-data=DIR]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all      Run tests, then build (default)")
	fmt.Println("  build    Build cmd/sdgwater into dist/")
	fmt.Println("  test     Run all Go tests")
	fmt.Println("  run      Build, then run the pipeline on -data")
	fmt.Println("  clean    Remove dist/, log files and metrics textfiles")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v       Verbose output")
	fmt.Println("  -race    Run tests with the race detector (default true)")
	fmt.Println("  -data    Input directory for the run target")
}
