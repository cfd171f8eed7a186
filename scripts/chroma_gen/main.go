// chroma_gen writes the stylesheet for the highlighted code blocks of rendered posts.
package main

import (
	"bytes"
	"flag"
	"log"
	"os"

	chtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/evanw/esbuild/pkg/api"
)

var (
	outFile = flag.String("o", "", "output file")
	style   = flag.String("style", "github", "chroma style")
)

func main() {
	flag.Parse()
	if *outFile == "" {
		log.Fatal("No output file specified")
	}

	formatter := chtml.New(chtml.WithClasses(true), chtml.TabWidth(4)) // Identical to sudoapi/mdrenderer
	var buf bytes.Buffer
	if err := formatter.WriteCSS(&buf, styles.Get(*style)); err != nil {
		log.Fatalf("Could not write `%s` theme: %v", *style, err)
	}

	rez := api.Transform(buf.String(), api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
		Engines: []api.Engine{
			{Name: api.EngineChrome, Version: "100"},
			{Name: api.EngineFirefox, Version: "100"},
			{Name: api.EngineSafari, Version: "11"},
		},
	})
	if len(rez.Errors) > 0 {
		log.Fatalf("Found %d errors in chroma.css: %#v", len(rez.Errors), rez.Errors)
	}

	if err := os.WriteFile(*outFile, rez.Code, 0644); err != nil {
		log.Fatalf("Could not write `%s`: %v", *outFile, err)
	}
}
