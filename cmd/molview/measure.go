package main

import (
	"fmt"
	"strings"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/notify"
	"github.com/spf13/cobra"
)

func newMeasureCmd(opts *globalOptions) *cobra.Command {
	var (
		kindName string
		serials  []int
	)

	cmd := &cobra.Command{
		Use:   "measure <source>",
		Short: "Measure a distance, angle or dihedral between atoms",
		Long: `Measure the geometry between atoms given by their serial numbers in the
file. A distance takes two atoms, an angle three and a dihedral four. The
result is recorded in the journal when one is configured.`,
		Example: `  molview measure 1crn --kind distance --atoms 1,2
  molview measure model.pdb --kind dihedral --atoms 1,2,3,5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := engine.ParseMeasurementKind(kindName)
			if err != nil {
				return err
			}
			if len(serials) != kind.Required() {
				return fmt.Errorf("a %s needs %d atoms, got %d", kind, kind.Required(), len(serials))
			}

			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var last notify.Message
			cancel := a.Notifications.Subscribe(func(m notify.Message) { last = m })
			defer cancel()

			if err := a.Open(cmd.Context(), args[0]); err != nil {
				return err
			}
			refs := a.Scene.Current()
			if len(refs) == 0 {
				return errNothingLoaded
			}
			id := refs[0].ID

			indices := make([]int, len(serials))
			for i, serial := range serials {
				index, ok := a.Scene.AtomIndexBySerial(id, serial)
				if !ok {
					return fmt.Errorf("no atom with serial %d", serial)
				}
				indices[i] = index
			}

			before := len(a.Scene.Measurements())
			if err := a.Viewer.ArmMeasurement(kind); err != nil {
				return err
			}
			for _, index := range indices {
				if err := a.Scene.ClickAtom(id, index); err != nil {
					return err
				}
			}

			measurements := a.Scene.Measurements()
			if len(measurements) == before {
				return fmt.Errorf("measurement not completed: %s", last.Text)
			}
			m := measurements[len(measurements)-1]

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %.3f %s\n", title(string(m.Kind)), m.Value, m.Unit)
			for i, label := range m.Atoms {
				fmt.Fprintf(w, "  Atom %d: %s (serial %d)\n", i+1, label, serials[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindName, "kind", "k", string(engine.Distance), "distance, angle or dihedral")
	cmd.Flags().IntSliceVarP(&serials, "atoms", "a", nil, "Comma-separated atom serial numbers")
	_ = cmd.MarkFlagRequired("atoms")
	return cmd
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
