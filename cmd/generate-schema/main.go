// Command generate-schema writes the JSON schema of the DittoDir
// configuration file.
//
// Usage:
//
//	generate-schema [output]   (default: config.schema.json, "-" for stdout)
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/dittodir/pkg/config"
	"github.com/marmos91/dittodir/pkg/store/record/badger"
	"github.com/marmos91/dittodir/pkg/store/record/sqlstore"
)

// storeSections documents the free-form store option maps. Each entry is
// keyed by its config path.
var storeSections = map[string]any{
	"store.badger": &badger.BadgerRecordStoreConfig{},
	"store.s3":     &config.S3StoreOptions{},
	"store.sql":    &sqlstore.SQLRecordStoreConfig{},
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		FieldNameTag:   "yaml",
	}
	schema := reflector.Reflect(&config.Config{})
	schema.Title = "DittoDir Configuration"
	schema.Description = "Configuration file of the DittoDir server"

	// Store options are decoded with mapstructure, not yaml
	options := jsonschema.Reflector{
		DoNotReference: true,
		FieldNameTag:   "mapstructure",
	}
	if schema.Definitions == nil {
		schema.Definitions = jsonschema.Definitions{}
	}
	for name, section := range storeSections {
		def := options.Reflect(section)
		def.Version = ""
		def.Description = "Options of the " + name + " section"
		schema.Definitions[name] = def
	}

	return schema
}

func main() {
	output := "config.schema.json"
	if len(os.Args) > 1 {
		output = os.Args[1]
	}

	data, err := json.MarshalIndent(buildSchema(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling schema: %v\n", err)
		os.Exit(1)
	}

	if output == "-" {
		_, _ = os.Stdout.Write(append(data, '\n'))
		return
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("JSON schema written to %s\n", output)
}
