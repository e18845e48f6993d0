package main

import (
	"flag"
	"log"

	"github.com/danmuck/logwire/internal/config"
)

const defaultPath = "cmd/logwired/config.toml"

func main() {
	kind := flag.String("kind", "host", "config kind: host")
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if _, err := config.Template(*kind); err != nil {
		log.Fatal(err)
	}

	if *validate {
		cfg, err := config.LoadHostConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s (listen=%s protocol=%s)", *kind, *input, cfg.ListenAddr, cfg.Protocol)
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, *output)
}
