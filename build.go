//go:build ignore

// build.go - churn-report build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: build, test, clean, release

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
	module  = "churncli"
	command = "churn-report"
)

var (
	rootDir string
	distDir string

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic(fmt.Sprintf("go.mod not found in %s; run from the repository root", rootDir))
	}
}

func main() {
	target := flag.String("target", "build", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if runtime.GOOS == "windows" {
		colorReset, colorRed, colorGreen, colorYellow, colorCyan = "", "", "", "", ""
	}

	printInfo(fmt.Sprintf("%s build (%s/%s)", command, runtime.GOOS, runtime.GOARCH))
	startTime := time.Now()

	var err error
	switch *target {
	case "build":
		err = buildExecutable(*verbose, false)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = clean(*verbose)
	case "release":
		if err = runTests(*verbose); err == nil {
			err = buildExecutable(*verbose, true)
		}
	default:
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printInfo(msg string)    { fmt.Printf("%s[INFO]%s %s\n", colorCyan, colorReset, msg) }
func printSuccess(msg string) { fmt.Printf("%s[OK]%s %s\n", colorGreen, colorReset, msg) }
func printError(msg string)   { fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg) }
func printWarning(msg string) { fmt.Printf("%s[WARN]%s %s\n", colorYellow, colorReset, msg) }

// ldflags stamps the version variables in pkg/contracts
func ldflags(release bool) string {
	pkg := module + "/pkg/contracts"
	flags := []string{
		fmt.Sprintf("-X %s.BuildTime=%s", pkg, time.Now().UTC().Format(time.RFC3339)),
		fmt.Sprintf("-X %s.GitCommit=%s", pkg, gitOutput("rev-parse", "--short", "HEAD")),
		fmt.Sprintf("-X %s.GitBranch=%s", pkg, gitOutput("rev-parse", "--abbrev-ref", "HEAD")),
	}
	if release {
		flags = append(flags, "-s", "-w")
	}
	return strings.Join(flags, " ")
}

func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func buildExecutable(verbose, release bool) error {
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return fmt.Errorf("create dist directory: %w", err)
	}

	name := command
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	output := filepath.Join(distDir, name)

	args := []string{"build", "-ldflags", ldflags(release), "-o", output}
	if release {
		args = append(args, "-trimpath")
	}
	args = append(args, "./cmd/"+command)

	printInfo("Building " + output)
	if err := run(verbose, "go", args...); err != nil {
		return fmt.Errorf("build %s: %w", command, err)
	}
	return nil
}

func runTests(verbose bool) error {
	args := []string{"test", "./..."}
	if verbose {
		args = append(args, "-v")
	}
	printInfo("Running tests")
	if err := run(true, "go", args...); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	return nil
}

func clean(verbose bool) error {
	for _, dir := range []string{distDir, filepath.Join(rootDir, "data", "reports"), filepath.Join(rootDir, "logs")} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if verbose {
			printInfo("Removing " + dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			printWarning(fmt.Sprintf("could not remove %s: %v", dir, err))
		}
	}
	return nil
}

func run(verbose bool, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = rootDir
	cmd.Stderr = os.Stderr
	if verbose {
		cmd.Stdout = os.Stdout
		printInfo(name + " " + strings.Join(args, " "))
	}
	return cmd.Run()
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  build    Build dist/" + command)
	fmt.Println("  test     Run go test ./...")
	fmt.Println("  clean    Remove dist, data/reports and logs")
	fmt.Println("  release  Run tests, then build a stripped binary")
}
