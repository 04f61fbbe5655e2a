package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rrens/sqlgate/internal/app"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// errRejected makes the process exit with status 2 after the verdict has
// been printed
var errRejected = errors.New("query rejected")

var (
	validateFile    string
	validateDialect string
	validateMaxRows int64
	validatePolicy  string
)

var validateCmd = &cobra.Command{
	Use:   "validate [sql]",
	Short: "Validate a query and print the verdict as JSON",
	Long: `Validate parses the query, checks that it is a single read-only statement and
applies the row ceiling. The SQL is taken from the argument, from --file, or from
stdin. The process exits with status 2 when the query is rejected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if validatePolicy != "" {
			cfg.Guard.OverLimitPolicy = validatePolicy
		}

		text, err := readSQL(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if len(text) > cfg.Guard.MaxSQLBytes {
			return fmt.Errorf("%w: %d bytes, limit %d", domain.ErrSQLTooLarge, len(text), cfg.Guard.MaxSQLBytes)
		}

		engine, err := app.NewEngine(cfg.Guard)
		if err != nil {
			return err
		}

		var opts []sqlguard.Option
		if validateDialect != "" {
			opts = append(opts, sqlguard.WithDialect(validateDialect))
		}
		if validateMaxRows > 0 {
			opts = append(opts, sqlguard.WithCeiling(validateMaxRows))
		}

		res, err := engine.Validate(text, opts...)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(domain.NewValidationResponse(res)); err != nil {
			return err
		}
		if !res.Accepted {
			return errRejected
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "read the query from a file")
	validateCmd.Flags().StringVarP(&validateDialect, "dialect", "d", "", "postgres, mysql or sqlite (default guard.default_dialect)")
	validateCmd.Flags().Int64Var(&validateMaxRows, "max-rows", 0, "row ceiling, at most guard.max_rows")
	validateCmd.Flags().StringVar(&validatePolicy, "policy", "", "over-limit policy: clamp or reject")
}

func readSQL(stdin io.Reader, args []string) (string, error) {
	switch {
	case len(args) == 1 && validateFile != "":
		return "", errors.New("pass the query as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case validateFile != "":
		b, err := os.ReadFile(validateFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", validateFile, err)
		}
		return string(b), nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.New("no query given")
	}
	return string(b), nil
}
