// toml_gen converts the translations TOML into the JSON catalog embedded by the root package.
// Every string must be translated to all locales.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	tomlPath = flag.String("toml_path", "./translations.toml", "Path to translation file")
	locales  = flag.String("locales", "tr,en", "Comma separated locales every string must have")
)

type strArray []string

func (i *strArray) String() string {
	return strings.Join(*i, ";")
}

func (i *strArray) Set(value string) error {
	*i = append(*i, value)
	return nil
}

var outPaths strArray

// isLeaf reports whether node is a translated string, ie. all of its values are strings.
func isLeaf(node map[string]any) bool {
	for _, v := range node {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return len(node) > 0
}

func check(node map[string]any, path []string, want []string) []string {
	var problems []string
	for key, val := range node {
		sub, ok := val.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s is not a table", strings.Join(append(path, key), ".")))
			continue
		}
		if !isLeaf(sub) {
			problems = append(problems, check(sub, append(slices.Clone(path), key), want)...)
			continue
		}
		for _, lang := range want {
			if s, _ := sub[lang].(string); s == "" {
				problems = append(problems, fmt.Sprintf("%s is missing %q", strings.Join(append(path, key), "."), lang))
			}
		}
	}
	return problems
}

func main() {
	flag.Var(&outPaths, "target", "File paths where JSON is written. Specify multiple times for multiple targets")
	flag.Parse()

	if len(outPaths) == 0 {
		log.Fatalln("No targets specified")
	}

	var vals map[string]any
	if _, err := toml.DecodeFile(*tomlPath, &vals); err != nil {
		log.Fatalln(err)
	}

	if problems := check(vals, nil, strings.Split(*locales, ",")); len(problems) > 0 {
		slices.Sort(problems)
		log.Fatalf("Incomplete translations:\n%s", strings.Join(problems, "\n"))
	}

	data, err := json.MarshalIndent(vals, "", "  ")
	if err != nil {
		log.Fatalln(err)
	}

	for _, path := range outPaths {
		if err := os.WriteFile(path, data, 0666); err != nil {
			log.Printf("Could not write translations to %s: %v\n", path, err)
		}
	}
}
