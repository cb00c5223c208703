package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	engine "github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1"
	"gopkg.in/yaml.v3"
)

type schemaSource interface {
	GenerateSchemaJSON() (string, error)
}

type target struct {
	config     schemaSource
	schemaName string
	sampleName string
}

func main() {
	engineConfig := engine.EmptyConfig()
	strategyConfig := engine.DefaultConfig()

	targets := []target{
		{config: &engineConfig, schemaName: "backtest-engine-v1-config.json", sampleName: "backtest-engine-v1-config.yaml"},
		{config: &strategyConfig, schemaName: "hybrid-strategy-config.json", sampleName: "hybrid-strategy-config.yaml"},
	}

	for _, t := range targets {
		schemaPath := filepath.Join("./config", t.schemaName)
		sampleConfigPath := filepath.Join("./config", t.sampleName)

		if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
			log.Fatalf("Invalid output paths: %v", err)
		}

		if err := validateSchemaName(t.schemaName); err != nil {
			log.Fatalf("Invalid schema name: %v", err)
		}

		if err := generateSchemaFile(t.config, schemaPath); err != nil {
			log.Fatalf("Failed to generate schema: %v", err)
		}

		if err := generateSampleConfig(t.config, sampleConfigPath, t.schemaName); err != nil {
			log.Fatalf("Failed to generate sample config: %v", err)
		}

		log.Printf("Schema successfully generated at %s", schemaPath)
	}
}

func generateSchemaFile(config schemaSource, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes config as YAML with a schema reference header. An existing
// file is left untouched.
func generateSampleConfig(config any, samplePath string, schemaName string) error {
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte(getSchemaReference(schemaName)), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	log.Printf("Sample config successfully generated at %s", samplePath)

	return nil
}

func validatePaths(schemaPath string, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(schemaName string) error {
	if schemaName == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(schemaName, ".json") {
		return fmt.Errorf("schema name %q must have .json extension", schemaName)
	}

	return nil
}

func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}
