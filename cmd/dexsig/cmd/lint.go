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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/dexsig/internal/colors"
	"github.com/blacktop/dexsig/internal/utils"
	"github.com/blacktop/dexsig/pkg/signature"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(lintCmd)
}

// lintCmd represents the lint command
var lintCmd = &cobra.Command{
	Use:   "lint <SIGNATURES>",
	Short: "Validate signature bundles",
	Example: heredoc.Doc(`
		# Check all bundles in a directory
		❯ dexsig lint ./sigs`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setup()

		bundles, err := signature.Parse(args[0])
		if err != nil {
			return fmt.Errorf("failed to parse signatures: %v", err)
		}

		var problems int
		var total int
		var targets []string
		for _, b := range bundles {
			log.WithFields(log.Fields{
				"target":  b.Target,
				"min":     b.Version.Min,
				"max":     b.Version.Max,
				"entries": len(b.Signatures),
			}).Info(colors.File(filepath.Base(b.Path)))
			targets = append(targets, b.Target)
			total += len(b.Signatures)

			if err := b.Validate(); err != nil {
				utils.Indent(log.Error, 2)(err.Error())
				problems++
			}

			var names []string
			for _, sig := range b.Signatures {
				names = append(names, sig.Name)
				if err := sig.Validate(); err != nil {
					for _, e := range unjoin(err) {
						utils.Indent(log.Error, 2)(e.Error())
						problems++
					}
					continue
				}
				log.Debugf("    %s", sig)
			}
			for _, dup := range utils.Duplicates(names) {
				utils.Indent(log.Error, 2)(fmt.Sprintf("duplicate signature name %q", dup))
				problems++
			}
		}

		log.Infof("Checked %d signatures in %d bundles (targets: %s)", total, len(bundles), strings.Join(utils.Unique(targets), ", "))
		if problems > 0 {
			return fmt.Errorf("found %d problems", problems)
		}
		return nil
	},
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
