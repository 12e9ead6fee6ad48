package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/philipparndt/gomol/internal/app"
	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/structure"
	"github.com/spf13/cobra"
)

var errNothingLoaded = errors.New("no structure loaded")

func newInfoCmd(opts *globalOptions) *cobra.Command {
	var representation, color string

	cmd := &cobra.Command{
		Use:   "info <source>",
		Short: "Display general information about a structure",
		Long: `Show the models, atoms, chains, residues, element composition and extent of
a structure. <source> is a PDB identifier, a URL, an s3:// object or a local
file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.Open(ctx, args[0]); err != nil {
				return err
			}
			if representation != "" {
				kind, err := engine.ParseRepresentationKind(representation)
				if err != nil {
					return err
				}
				if err := a.Viewer.SetRepresentation(ctx, kind); err != nil {
					return err
				}
			}
			if color != "" {
				theme, err := engine.ParseColorTheme(color)
				if err != nil {
					return err
				}
				if err := a.Viewer.SetColor(ctx, theme); err != nil {
					return err
				}
			}
			return printInfo(cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().StringVar(&representation, "representation", "", "Representation to apply after loading")
	cmd.Flags().StringVar(&color, "color", "", "Color theme to apply after loading")
	return cmd
}

func printInfo(w io.Writer, a *app.App) error {
	refs := a.Scene.Current()
	if len(refs) == 0 {
		return errNothingLoaded
	}
	s, ok := a.Scene.Structure(refs[0].ID)
	if !ok {
		return errNothingLoaded
	}
	result := structure.Analyze(s)

	fmt.Fprintln(w, "Structure Information")
	fmt.Fprintln(w, "=====================")
	if result.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", result.Name)
	}
	fmt.Fprintf(w, "Source: %s\n", a.Viewer.Source())
	if meta, ok := a.Viewer.Metadata(); ok {
		fmt.Fprintf(w, "Title: %s\n", meta.Title)
		if meta.Resolution != "" {
			fmt.Fprintf(w, "Resolution: %s\n", meta.Resolution)
		}
		if meta.Organism != "" {
			fmt.Fprintf(w, "Organism: %s\n", meta.Organism)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Statistics:")
	fmt.Fprintf(w, "  Models: %d\n", result.Models)
	fmt.Fprintf(w, "  Atoms: %d (polymer %d, hetero %d, water %d)\n",
		result.Atoms, result.PolymerAtom, result.HeteroAtoms, result.Waters)
	fmt.Fprintf(w, "  Chains: %d %v\n", len(result.Chains), result.Chains)
	fmt.Fprintf(w, "  Residues: %d\n\n", result.Residues)

	if !result.BoundingBox.IsEmpty() {
		fmt.Fprintln(w, "Bounding Box:")
		fmt.Fprintf(w, "  Min: %s\n", structure.FormatVector(result.BoundingBox.Min))
		fmt.Fprintf(w, "  Max: %s\n", structure.FormatVector(result.BoundingBox.Max))
		fmt.Fprintf(w, "  Center: %s\n", structure.FormatVector(result.BoundingBox.Center()))
		fmt.Fprintf(w, "  Centroid: %s\n", structure.FormatVector(result.Centroid))
		fmt.Fprintf(w, "  Diagonal: %.3f Å\n", result.BoundingBox.Diagonal())
		fmt.Fprintf(w, "  Dimensions: %.3f x %.3f x %.3f Å\n\n",
			result.Dimensions.X, result.Dimensions.Y, result.Dimensions.Z)
	}

	fmt.Fprintln(w, "Elements:")
	elements := tablewriter.NewWriter(w)
	elements.SetHeader([]string{"Element", "Atoms"})
	elements.SetBorder(false)
	elements.SetCenterSeparator("")
	elements.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, e := range result.Elements {
		elements.Append([]string{e.Symbol, strconv.Itoa(e.Count)})
	}
	elements.Render()

	fmt.Fprintln(w, "\nRepresentations:")
	reps := tablewriter.NewWriter(w)
	reps.SetHeader([]string{"Kind", "Color"})
	reps.SetBorder(false)
	reps.SetCenterSeparator("")
	for _, r := range a.Scene.Representations(refs[0].ID) {
		reps.Append([]string{string(r.Kind), string(r.Theme)})
	}
	reps.Render()
	return nil
}
