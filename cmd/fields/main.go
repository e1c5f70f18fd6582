package main

import (
	"bytes"
	"context"
	"flag"
	"log"
	"os"

	"hearts-echo/cmd"
	"hearts-echo/internal/config"
	"hearts-echo/internal/core"

	"gopkg.in/yaml.v2"
)

const fieldsKey = "fields.yaml"

type fieldsFile struct {
	Fields []string `yaml:"fields"`
}

func main() {
	out := flag.String("out", "", "file to write the field vocabulary to, stdout if empty")
	publish := flag.Bool("publish", false, "also store the vocabulary next to the template banks as "+fieldsKey)

	cmd.LoadEnvFile()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	provider, bucket, err := cmd.NewTemplateStore(cfg)
	if err != nil {
		log.Fatalf("error creating template store: %v", err)
	}

	ctx := context.Background()

	vocab, err := core.NewRegistry(core.NewStorageSource(provider, bucket)).Vocabulary(ctx)
	if err != nil {
		log.Fatalf("error building field vocabulary: %v", err)
	}

	data, err := yaml.Marshal(fieldsFile{Fields: vocab.Names()})
	if err != nil {
		log.Fatalf("error encoding field vocabulary: %v", err)
	}

	if *out == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			log.Fatalf("error writing field vocabulary: %v", err)
		}
	} else {
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatalf("error writing field vocabulary to '%s': %v", *out, err)
		}
		log.Printf("wrote %d fields to %s", vocab.Len(), *out)
	}

	if *publish {
		if err := provider.PutObject(ctx, bucket, fieldsKey, bytes.NewReader(data)); err != nil {
			log.Fatalf("error publishing field vocabulary: %v", err)
		}
		log.Printf("published field vocabulary as %s", fieldsKey)
	}
}
