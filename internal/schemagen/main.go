// Command schemagen generates the JSON schema embedded by pkg/rule. It is
// invoked via go:generate whenever the rule or check wire surface changes.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/jyasuu/jcheck/pkg/rule"
)

var outFile = flag.String("o", "rules.v1beta1.json", "Output file for the generated schema")

func main() {
	flag.Parse()

	r := &jsonschema.Reflector{
		BaseSchemaID: "https://github.com/jyasuu/jcheck/pkg/rule",
	}

	js := r.Reflect(&rule.RuleSet{})

	jsData, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.WriteFile(*outFile, append(jsData, '\n'), 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
