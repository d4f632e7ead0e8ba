package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	formstate "github.com/reoring/formstate"
	"github.com/reoring/formstate/formdef"
	"github.com/reoring/formstate/internal/dirty"
)

// errInvalid is returned when values fail validation; the routed errors are
// printed before it.
var errInvalid = errors.New("values are invalid")

var checkCmd = &cobra.Command{
	Use:   "check <definition> <values>",
	Short: "Validate a values file against a form definition",
	Long: `Decodes the values with every field validator and whole-form refinement
of the definition and prints the routed errors as JSON, keyed by path.

Exits non-zero when the values are invalid.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

var defaultsCmd = &cobra.Command{
	Use:   "defaults <definition>",
	Short: "Print the initial values of a form definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runDefaults,
}

var diffCmd = &cobra.Command{
	Use:   "diff <initial> <current>",
	Short: "Print the paths whose values differ between two values files",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

var submitCmd = &cobra.Command{
	Use:   "submit <definition> <values>",
	Short: "Simulate a submission through a live form",
	Long: `Creates a form from the definition, applies every top-level value of the
values file as a change, submits and prints the resulting snapshot.`,
	Args: cobra.ExactArgs(2),
	RunE: runSubmit,
}

func compileFile(path string) (*formdef.Compiled, error) {
	def, err := formdef.Load(path)
	if err != nil {
		return nil, err
	}
	return formdef.Compile(def)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	c, err := compileFile(args[0])
	if err != nil {
		return err
	}
	values, err := formdef.LoadValues(args[1])
	if err != nil {
		return err
	}
	logger.Debug("checking values", zap.String("definition", args[0]), zap.String("values", args[1]))
	errs, err := c.Check(ctx, values)
	if err != nil {
		return err
	}
	if errs == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}
	if err := writeJSON(cmd.OutOrStdout(), errs); err != nil {
		return err
	}
	logger.Info("values rejected", zap.Int("errors", len(errs)))
	return errInvalid
}

func runDefaults(cmd *cobra.Command, args []string) error {
	c, err := compileFile(args[0])
	if err != nil {
		return err
	}
	values := c.Schema.Defaults()
	maps.Copy(values, c.Defaults)
	return writeJSON(cmd.OutOrStdout(), values)
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := formdef.LoadValues(args[0])
	if err != nil {
		return err
	}
	b, err := formdef.LoadValues(args[1])
	if err != nil {
		return err
	}
	paths := dirty.Recompute(dirty.Set{}, a, b, "").Sorted()
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	logger.Debug("diff computed", zap.Int("paths", len(paths)))
	return nil
}

type submitReport struct {
	Status      string                          `json:"status"`
	SubmitCount int                             `json:"submitCount"`
	Dirty       []string                        `json:"dirty"`
	Errors      map[string]formstate.FieldError `json:"errors,omitempty"`
	Decoded     map[string]any                  `json:"decoded,omitempty"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	c, err := compileFile(args[0])
	if err != nil {
		return err
	}
	values, err := formdef.LoadValues(args[1])
	if err != nil {
		return err
	}
	// auto-submit is left to the explicit Submit below
	mode := c.Mode
	mode.AutoSubmit = false
	f, err := c.NewForm(formstate.WithMode(mode), formstate.WithLogger(logger))
	if err != nil {
		return err
	}
	defer f.Close()

	for _, k := range c.Schema.Keys() {
		v, ok := values[k]
		if !ok {
			continue
		}
		if err := f.Field(k).OnChange(v); err != nil {
			return err
		}
	}
	_, submitErr := f.Submit(ctx)
	if submitErr != nil && !errors.Is(submitErr, formstate.ErrValidation) {
		return submitErr
	}

	snap := f.Snapshot()
	report := submitReport{
		Status:      snap.Result.Status.String(),
		SubmitCount: snap.SubmitCount,
		Dirty:       snap.DirtyFields,
		Errors:      snap.Errors,
	}
	if snap.LastSubmitted != nil {
		report.Decoded = snap.LastSubmitted.Decoded
	}
	if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if submitErr != nil {
		return errInvalid
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
