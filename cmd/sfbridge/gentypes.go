package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tmcallister/sfbridge/internal/config"
	"github.com/tmcallister/sfbridge/internal/mapping"
	"github.com/tmcallister/sfbridge/internal/salesforce"
)

var genTypesDir string

var genTypesCmd = &cobra.Command{
	Use:   "gen-types <ObjectType>",
	Short: "Generate a Go struct from a Salesforce object describe",
	Long: `Describe a Salesforce object and write a Go struct definition for it.

The generated file lands in the output directory (default models/) as
<objecttype>.go. Nillable fields become pointer types.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runGenTypes(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	genTypesCmd.Flags().StringVar(&genTypesDir, "dir", "models", "output directory")
	rootCmd.AddCommand(genTypesCmd)
}

func runGenTypes(cmd *cobra.Command, objectType string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := salesforce.Connect(ctx, salesforce.Config{
		LoginURL:      cfg.Salesforce.LoginURL,
		ClientID:      cfg.Salesforce.ClientID,
		ClientSecret:  cfg.Salesforce.ClientSecret,
		Username:      cfg.Salesforce.Username,
		Password:      cfg.Salesforce.Password,
		SecurityToken: cfg.Salesforce.SecurityToken,
	})
	if err != nil {
		return fmt.Errorf("salesforce login: %w", err)
	}

	fields, err := client.Describe(ctx, objectType)
	if err != nil {
		return err
	}

	src := generateStruct(objectType, fields)

	if err := os.MkdirAll(genTypesDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(genTypesDir, strings.ToLower(objectType)+".go")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Printf("Generated %s (%d fields)\n", path, len(fields))
	return nil
}

// generateStruct renders a Go struct for the described object. Field names
// come straight from Salesforce, which already uses exported-style
// CamelCase names.
func generateStruct(objectType string, fields []salesforce.Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package models\n\n")
	fmt.Fprintf(&b, "// %s is generated from the Salesforce %s object describe.\n", objectType, objectType)
	fmt.Fprintf(&b, "type %s struct {\n", objectType)
	for _, field := range fields {
		goType := mapping.GoType(field)
		if field.Nillable && goType != "any" {
			goType = "*" + goType
		}
		fmt.Fprintf(&b, "\t%s %s `json:\"%s,omitempty\"`\n", field.Name, goType, field.Name)
	}
	fmt.Fprintf(&b, "}\n")
	return b.String()
}
