package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stealthrocket/serdeassert/internal/serdegen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of serdegen:\n")
	fmt.Fprintf(os.Stderr, "\tserdegen [flags] -type T[,U...] [packages]\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

const defaultOutput = "serde_generated.go"

func main() {
	typeNames := ""
	flag.StringVar(&typeNames, "type", "", "comma-separated list of struct type names; must be set")
	output := ""
	flag.StringVar(&output, "output", "", "output file name; defaults to <package dir>/"+defaultOutput)
	tags := ""
	flag.StringVar(&tags, "tags", "", "build constraint added to the generated file")
	verbose := false
	flag.BoolVar(&verbose, "v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if len(typeNames) == 0 {
		fmt.Fprintf(os.Stderr, "missing type name (-type is required)\n")
		flag.Usage()
		os.Exit(2)
	}

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"."}
	}

	var buildTags []string
	if tags != "" {
		buildTags = []string{tags}
	}

	err := generate(strings.Split(typeNames, ","), args, output, buildTags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func generate(typeNames []string, patterns []string, output string, tags []string) error {
	pkgs, err := parse(patterns)
	if err != nil {
		return err
	}

	// Each type is generated in the first package declaring it.
	byPkg := make(map[*packages.Package][]string)
	var missing []string
	for _, name := range typeNames {
		pkg := lookup(pkgs, name)
		if pkg == nil {
			missing = append(missing, name)
			continue
		}
		byPkg[pkg] = append(byPkg[pkg], name)
	}
	if len(missing) > 0 {
		return fmt.Errorf("types not found: %s", strings.Join(missing, ", "))
	}
	if output != "" && len(byPkg) > 1 {
		return errors.New("-output cannot be used when types span multiple packages")
	}

	var group errgroup.Group
	for pkg, names := range byPkg {
		group.Go(func() error {
			return generatePackage(pkg, names, output, tags)
		})
	}
	return group.Wait()
}

func parse(patterns []string) ([]*packages.Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedTypes,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, err
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, errors.New("packages contain errors")
	}
	return pkgs, nil
}

func lookup(pkgs []*packages.Package, name string) *packages.Package {
	for _, pkg := range pkgs {
		if pkg.Types != nil && pkg.Types.Scope().Lookup(name) != nil {
			return pkg
		}
	}
	return nil
}

func generatePackage(pkg *packages.Package, names []string, output string, tags []string) error {
	g := serdegen.NewGenerator(pkg.Types, tags)
	for _, name := range names {
		if err := g.Add(name); err != nil {
			return err
		}
	}
	src, err := g.Bytes()
	if err != nil {
		return err
	}

	if output == "" {
		if len(pkg.GoFiles) == 0 {
			return fmt.Errorf("package %s has no Go files", pkg.PkgPath)
		}
		output = filepath.Join(filepath.Dir(pkg.GoFiles[0]), defaultOutput)
	}

	slog.Debug("writing generated code", "package", pkg.PkgPath, "types", names, "output", output)
	if err := os.WriteFile(output, src, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}
