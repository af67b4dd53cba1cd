/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/dexsig/internal/colors"
	"github.com/blacktop/dexsig/internal/config"
	"github.com/blacktop/dexsig/internal/db"
	"github.com/blacktop/dexsig/internal/model"
	"github.com/blacktop/dexsig/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	runsCmd.Flags().BoolP("delete", "d", false, "Delete the given run")
	viper.BindPFlag("runs.json", runsCmd.Flags().Lookup("json"))
	viper.BindPFlag("runs.delete", runsCmd.Flags().Lookup("delete"))
}

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs [ID]",
	Short: "List saved resolution runs",
	Example: heredoc.Doc(`
		# List saved runs
		❯ dexsig runs
		# Show one run as JSON
		❯ dexsig runs --json 3f2a9c1e-6b7d-4c1a-9e2f-0d8b5a4c7e61
		# Delete a run
		❯ dexsig runs --delete 3f2a9c1e-6b7d-4c1a-9e2f-0d8b5a4c7e61`),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		setup()

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}
		d, err := db.Open(conf.Database)
		if err != nil {
			return err
		}
		if err := d.Connect(); err != nil {
			return err
		}
		defer func() {
			if cerr := d.Close(); err == nil {
				err = cerr
			}
		}()

		if viper.GetBool("runs.delete") {
			if len(args) == 0 {
				return fmt.Errorf("--delete requires a run ID")
			}
			if err := d.Delete(args[0]); err != nil {
				return err
			}
			log.WithField("id", args[0]).Info("Deleted run")
			return nil
		}

		if len(args) == 1 {
			run, err := d.Get(args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("runs.json") {
				dat, err := json.MarshalIndent(run, "", "  ")
				if err != nil {
					return err
				}
				return writeOutput("", dat)
			}
			return printRun(run)
		}

		runs, err := d.List()
		if err != nil {
			return err
		}
		if viper.GetBool("runs.json") {
			dat, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput("", dat)
		}
		if len(runs) == 0 {
			log.Warn("No saved runs")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tDUMP\tTARGET\tVERSION\tPOLICY\tRESOLVED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
				r.ShortID(), humanize.Time(r.CreatedAt), r.Dump, r.Target, r.AppVersion, r.Policy, len(r.Matches), r.Signatures)
		}
		return w.Flush()
	},
}

func printRun(run *model.Run) error {
	fmt.Printf("%s %s (%s %s) %s, %s classes\n", colors.File(run.ID), run.Dump, run.Target, run.AppVersion,
		humanize.Time(run.CreatedAt), humanize.Comma(int64(run.Classes)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	for _, m := range run.Matches {
		fmt.Fprintf(w, "%s\t%s\t[%d:%d]\t%d warnings\n", colors.Match(m.Signature), colors.Method(m.Method), m.StartIndex, m.EndIndex, m.Warnings)
		if m.Details != "" {
			for _, line := range strings.Split(m.Details, "\n") {
				fmt.Fprintf(w, "\t%s%s\t\t\n", utils.Pad(2), colors.Warning(line))
			}
		}
	}
	return w.Flush()
}
