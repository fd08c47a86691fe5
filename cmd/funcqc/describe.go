package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/funcqc/funcqc/internal/contract"
	ferrors "github.com/funcqc/funcqc/internal/errors"
	"github.com/funcqc/funcqc/internal/ui"
	"github.com/funcqc/funcqc/pkg/model"
)

// descriptionEntry is the on-disk shape of one row in a describe
// import file.
type descriptionEntry struct {
	SemanticID      string  `json:"semanticId"`
	Description     string  `json:"description"`
	Source          string  `json:"source"`
	AIModel         string  `json:"aiModel"`
	ConfidenceScore float64 `json:"confidenceScore"`
	CreatedBy       string  `json:"createdBy"`
}

// runDescribe dispatches the 'describe' command's subcommands.
func runDescribe(args []string, globals GlobalFlags) {
	if len(args) == 0 || args[0] != "import" {
		fmt.Fprintln(os.Stderr, "Usage: funcqc describe import <file>")
		os.Exit(1)
	}
	runDescribeImport(args[1:], globals)
}

// runDescribeImport reads a JSON array of description entries and
// upserts them into the Snapshot Store, skipping and warning on
// entries missing semanticId or description rather than failing the
// whole batch.
func runDescribeImport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("describe import", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: funcqc describe import <file>

Reads a JSON array of {semanticId, description, source?, aiModel?,
confidenceScore?, createdBy?} entries and upserts them as function
descriptions. Entries missing semanticId or description are skipped
with a warning.
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fs.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(rest[0])
	if err != nil {
		fatal(globals, ferrors.NewInputError(
			"cannot read describe import file",
			err.Error(),
			"check the file path",
		))
	}

	if result := contract.ValidateBatchScript(string(raw)); !result.OK {
		fatal(globals, ferrors.NewInputError(
			"describe import file rejected",
			result.Message,
			"split the file into smaller batches",
		))
	}

	var entries []descriptionEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		fatal(globals, ferrors.NewInputError(
			"cannot parse describe import file",
			err.Error(),
			"check that the file is a JSON array of description entries",
		))
	}

	now := time.Now()
	var descriptions []model.FunctionDescription
	skipped := 0
	for _, e := range entries {
		if e.SemanticID == "" || e.Description == "" {
			skipped++
			ui.Warningf("skipping entry with missing semanticId/description (semanticId=%q)", e.SemanticID)
			continue
		}
		source := model.DescriptionSource(e.Source)
		if source == "" {
			source = model.DescriptionHuman
		}
		descriptions = append(descriptions, model.FunctionDescription{
			SemanticID:      e.SemanticID,
			Description:     e.Description,
			Source:          source,
			CreatedBy:       e.CreatedBy,
			AIModel:         e.AIModel,
			ConfidenceScore: e.ConfidenceScore,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	cfg, _ := loadConfig(globals)
	store := openStore(globals, cfg)
	defer store.Close()

	if len(descriptions) > 0 {
		if err := store.SaveFunctionDescriptions(context.Background(), descriptions); err != nil {
			fatal(globals, err)
		}
	}

	if globals.JSON {
		if err := jsonOut(map[string]int{"imported": len(descriptions), "skipped": skipped}); err != nil {
			fatal(globals, err)
		}
		return
	}

	ui.Successf("imported %d description(s), skipped %d", len(descriptions), skipped)
}
