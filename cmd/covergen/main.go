package main

import (
	"flag"
	"fmt"
	"os"

	covergen "github.com/coverforge/covergen"
)

func main() {
	templatesDir := flag.String("templates", "templates", "template directory (*.json)")
	csvPath := flag.String("csv", "", "batch CSV file (required)")
	outDir := flag.String("out", "output", "output directory for rendered PNGs")
	exportKey := flag.String("export-header", "", "print the CSV header for a template key and exit")
	flag.Parse()

	registry := covergen.NewTemplateRegistry()
	if err := registry.LoadWithDefault(*templatesDir); err != nil {
		fmt.Fprintf(os.Stderr, "load templates: %v\n", err)
		os.Exit(1)
	}

	if *exportKey != "" {
		t, ok := registry.Get(*exportKey)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown template %q (have: %v)\n", *exportKey, registry.Keys())
			os.Exit(1)
		}
		for i, col := range covergen.CSVHeader(t) {
			if i > 0 {
				fmt.Print(",")
			}
			fmt.Print(col)
		}
		fmt.Println()
		return
	}

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: covergen -csv batch.csv [-templates dir] [-out dir]")
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open csv: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	runner := &covergen.BatchRunner{
		Registry:  registry,
		Engine:    covergen.NewEngine(),
		OutputDir: *outDir,
	}
	report, err := runner.Run(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "batch: %v\n", err)
		os.Exit(1)
	}

	for _, rowErr := range report.Errors {
		fmt.Fprintf(os.Stderr, "%v\n", rowErr)
	}
	fmt.Printf("rendered %d/%d rows to %s\n", report.Rendered, report.Total, *outDir)
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
