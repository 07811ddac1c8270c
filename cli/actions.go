// Package cli implements the pdfcrop command-line actions.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"pdfcrop/filestore"
	"pdfcrop/pdfdoc"
	"pdfcrop/store"
	"pdfcrop/types"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// NewApp builds the command tree. Preset commands and --preset use the
// SQLite database given by --db.
func NewApp() *cli.App {
	dbFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "db",
			Usage:   "preset database file",
			Value:   store.DefaultDBName,
			EnvVars: []string{"PRESET_DB_PATH"},
		}
	}

	return &cli.App{
		Name:  "pdfcrop",
		Usage: "crop visible margins from every page of a PDF",
		Commands: []*cli.Command{
			{
				Name:      "crop",
				Usage:     "crop a PDF file",
				ArgsUsage: "<input.pdf>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default cropped_<input>)"},
					&cli.StringFlag{Name: "top", Usage: "top margin in percent"},
					&cli.StringFlag{Name: "right", Usage: "right margin in percent"},
					&cli.StringFlag{Name: "bottom", Usage: "bottom margin in percent"},
					&cli.StringFlag{Name: "left", Usage: "left margin in percent"},
					&cli.StringFlag{Name: "margin", Aliases: []string{"m"}, Usage: "margin for every side in percent"},
					&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: "named preset supplying the margins"},
					dbFlag(),
				},
				Action: CropAction,
			},
			{
				Name:  "presets",
				Usage: "manage margin presets",
				Flags: []cli.Flag{dbFlag()},
				Subcommands: []*cli.Command{
					{Name: "list", Usage: "list presets", Action: ListPresetsAction},
					{
						Name:      "add",
						Usage:     "add or replace a preset",
						ArgsUsage: "<name> <top> <right> <bottom> <left>",
						Action:    AddPresetAction,
					},
					{Name: "delete", Usage: "delete a preset", ArgsUsage: "<name>", Action: DeletePresetAction},
					{Name: "import", Usage: "import presets from YAML", ArgsUsage: "<file.yaml>", Action: ImportPresetsAction},
					{Name: "export", Usage: "write presets as YAML to stdout", Action: ExportPresetsAction},
				},
			},
		},
	}
}

func openStore(c *cli.Context) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(c.String("db"))
	if err != nil {
		return nil, err
	}
	if err := s.Init(c.Context); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func CropAction(c *cli.Context) error {
	input := c.Args().First()
	if input == "" {
		return cli.Exit("missing input file", 1)
	}
	if !filestore.AllowedFile(input) {
		return cli.Exit("Invalid file type. Please use a PDF file.", 1)
	}

	params := types.MarginParams{
		Top:    c.String("top"),
		Right:  c.String("right"),
		Bottom: c.String("bottom"),
		Left:   c.String("left"),
		Margin: c.String("margin"),
		Preset: c.String("preset"),
	}

	defaults, err := types.Uniform(types.DefaultMargin)
	if err != nil {
		return err
	}
	if params.Preset != "" {
		s, err := openStore(c)
		if err != nil {
			return err
		}
		preset, err := s.GetPresetByName(c.Context, params.Preset)
		s.Close()
		if err != nil {
			return fmt.Errorf("preset %q: %w", params.Preset, err)
		}
		defaults = preset.Margins
	}

	spec, err := params.ToSpec(defaults)
	if err != nil {
		var verr types.ValidationError
		if errors.As(err, &verr) {
			return cli.Exit(validationMessage(verr), 1)
		}
		return err
	}

	output := c.String("out")
	if output == "" {
		output = filepath.Join(filepath.Dir(input), filestore.OutputName(filepath.Base(input)))
	}

	start := time.Now()
	pages, err := pdfdoc.CropFile(input, output, spec)
	if err != nil {
		return fmt.Errorf("error processing PDF: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Cropped %d page(s) (%s) -> %s in %v\n", pages, spec, output, time.Since(start).Round(time.Millisecond))
	return nil
}

func validationMessage(verr types.ValidationError) string {
	var lines []string
	for _, field := range []string{"top", "right", "bottom", "left", "margin", "preset"} {
		if msg, ok := verr.Errors[field]; ok {
			lines = append(lines, msg)
		}
	}
	return strings.Join(lines, "\n")
}

func ListPresetsAction(c *cli.Context) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	presets, err := s.ListPresets(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list presets: %w", err)
	}
	if len(presets) == 0 {
		fmt.Fprintln(c.App.Writer, "No presets found")
		return nil
	}

	fmt.Fprintf(c.App.Writer, "%-20s %-8s %-8s %-8s %-8s\n", "Name", "Top", "Right", "Bottom", "Left")
	fmt.Fprintln(c.App.Writer, strings.Repeat("-", 56))
	for _, p := range presets {
		fmt.Fprintf(c.App.Writer, "%-20s %-8g %-8g %-8g %-8g\n",
			p.Name, p.Margins.Top, p.Margins.Right, p.Margins.Bottom, p.Margins.Left)
	}
	return nil
}

func AddPresetAction(c *cli.Context) error {
	if c.NArg() != 5 {
		return cli.Exit("usage: pdfcrop presets add <name> <top> <right> <bottom> <left>", 1)
	}

	var values [4]float64
	for i := range values {
		v, err := strconv.ParseFloat(c.Args().Get(i+1), 64)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid margin value %q", c.Args().Get(i+1)), 1)
		}
		values[i] = v
	}

	params := types.PresetParams{
		Name:   c.Args().First(),
		Top:    values[0],
		Right:  values[1],
		Bottom: values[2],
		Left:   values[3],
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return cli.Exit(fmt.Sprintf("invalid preset: %v", errs), 1)
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SavePreset(c.Context, params.ToPreset()); err != nil {
		return fmt.Errorf("failed to save preset: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Saved preset %s to %s\n", params.Name, s.Path())
	return nil
}

func DeletePresetAction(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("missing preset name", 1)
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeletePreset(c.Context, name); err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted preset %s\n", name)
	return nil
}

func ImportPresetsAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing YAML file", 1)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	presets, err := store.LoadPresetsYAML(f)
	if err != nil {
		return err
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := store.ImportPresets(c.Context, s, presets); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Imported %d preset(s) into %s\n", len(presets), s.Path())
	return nil
}

func ExportPresetsAction(c *cli.Context) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	presets, err := s.ListPresets(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list presets: %w", err)
	}
	return store.WritePresetsYAML(c.App.Writer, presets)
}
