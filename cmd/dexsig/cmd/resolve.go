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
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/dexsig/internal/colors"
	"github.com/blacktop/dexsig/internal/config"
	"github.com/blacktop/dexsig/internal/db"
	"github.com/blacktop/dexsig/internal/model"
	"github.com/blacktop/dexsig/internal/utils"
	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/blacktop/dexsig/pkg/resolver"
	"github.com/blacktop/dexsig/pkg/signature"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ErrNoSignatures = errors.New("no signatures apply")

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringP("signatures", "s", "", "Path to signatures folder")
	resolveCmd.MarkFlagRequired("signatures")
	resolveCmd.MarkFlagDirname("signatures")
	resolveCmd.Flags().StringP("app-version", "a", "", "App version to select signature bundles (default is the dump version)")
	resolveCmd.Flags().StringP("target", "t", "", "App package to select signature bundles (default is the dump package)")
	resolveCmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	resolveCmd.Flags().StringP("output", "o", "", "File to write JSON results to")
	resolveCmd.Flags().IntP("workers", "w", 0, "Number of classes scanned concurrently (default is GOMAXPROCS)")
	resolveCmd.Flags().Bool("first-match", false, "Keep the first match of each signature instead of the last")
	resolveCmd.Flags().Bool("save", false, "Save the run to the database")
	viper.BindPFlag("resolve.signatures", resolveCmd.Flags().Lookup("signatures"))
	viper.BindPFlag("resolve.app-version", resolveCmd.Flags().Lookup("app-version"))
	viper.BindPFlag("resolve.target", resolveCmd.Flags().Lookup("target"))
	viper.BindPFlag("resolve.json", resolveCmd.Flags().Lookup("json"))
	viper.BindPFlag("resolve.output", resolveCmd.Flags().Lookup("output"))
	viper.BindPFlag("resolver.workers", resolveCmd.Flags().Lookup("workers"))
	viper.BindPFlag("resolve.first-match", resolveCmd.Flags().Lookup("first-match"))
	viper.BindPFlag("resolve.save", resolveCmd.Flags().Lookup("save"))
}

type resolved struct {
	Signature string             `json:"signature"`
	Class     string             `json:"class"`
	Method    string             `json:"method"`
	Start     int                `json:"start_index"`
	End       int                `json:"end_index"`
	Warnings  []resolver.Warning `json:"warnings,omitempty"`
}

type resolveOutput struct {
	Dump       string     `json:"dump"`
	Target     string     `json:"target,omitempty"`
	AppVersion string     `json:"app_version,omitempty"`
	Policy     string     `json:"policy"`
	Resolved   []resolved `json:"resolved"`
	Unresolved []string   `json:"unresolved"`
}

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:     "resolve <DUMP>",
	Aliases: []string{"r"},
	Short:   "Resolve signatures against a class dump",
	Example: heredoc.Doc(`
		# Resolve every signature in a directory
		❯ dexsig resolve --signatures ./sigs classes.json
		# Only bundles for this app version, keeping the first match
		❯ dexsig resolve -s ./sigs --app-version 8.12.0 --first-match classes.yaml
		# Save the run and write JSON
		❯ dexsig resolve -s ./sigs --save --json -o matches.json classes.json`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setup()

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if viper.GetBool("resolve.first-match") {
			conf.Resolver.Policy = resolver.PolicyFirstMatch
		}

		log.WithField("dump", filepath.Base(args[0])).Info("Loading classes")
		dump, err := dex.LoadDump(args[0])
		if err != nil {
			return err
		}
		classes := dump.ClassDefs()

		target := viper.GetString("resolve.target")
		if target == "" {
			target = dump.Package
		}
		appVersion := viper.GetString("resolve.app-version")
		if appVersion == "" {
			appVersion = dump.Version
		}

		log.Info("Parsing Signatures")
		bundles, err := signature.Parse(viper.GetString("resolve.signatures"))
		if err != nil {
			return fmt.Errorf("failed to parse signatures: %v", err)
		}
		sigs, err := signature.Select(bundles, target, appVersion)
		if err != nil {
			return err
		}
		if len(sigs) == 0 {
			return fmt.Errorf("%w to %s %s (checked %d bundles)", ErrNoSignatures, target, appVersion, len(bundles))
		}
		for _, sig := range sigs {
			if err := sig.Validate(); err != nil {
				log.WithError(err).Warn("Questionable signature")
			}
		}

		r, err := resolver.New(nil, conf.Resolver.Options())
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"signatures": len(sigs),
			"classes":    humanize.Comma(int64(len(classes))),
			"workers":    r.Options().Workers,
			"policy":     r.Options().Policy,
		}).Info("Resolving...")
		start := time.Now()
		results := r.Resolve(sigs, classes)
		elapsed := time.Since(start)

		sorted := results.Sorted(sigs)
		unresolved := results.Unresolved(sigs)

		if viper.GetBool("resolve.save") {
			if err := saveRun(conf, args[0], target, appVersion, r.Options().Policy, len(sigs), len(classes), sorted); err != nil {
				return err
			}
		}

		/* JSON OUTPUT */

		if viper.GetBool("resolve.json") || viper.GetString("resolve.output") != "" {
			out := resolveOutput{
				Dump:       filepath.Base(args[0]),
				Target:     target,
				AppVersion: appVersion,
				Policy:     r.Options().Policy.String(),
				Resolved:   []resolved{},
				Unresolved: []string{},
			}
			for _, res := range sorted {
				out.Resolved = append(out.Resolved, resolved{
					Signature: res.Signature.Name,
					Class:     res.Proxy.Type(),
					Method:    dex.MethodReference(res.Method),
					Start:     res.Scan.StartIndex,
					End:       res.Scan.EndIndex,
					Warnings:  res.Scan.Warnings,
				})
			}
			for _, sig := range unresolved {
				out.Unresolved = append(out.Unresolved, sig.Name)
			}
			dat, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal results: %v", err)
			}
			return writeOutput(viper.GetString("resolve.output"), dat)
		}

		for _, sig := range sigs {
			res, ok := results.Get(sig)
			if !ok {
				log.Warnf("%s %s", colors.Miss("✗"), colors.Miss(sig.Name))
				continue
			}
			log.Infof("%s %s => %s [%d:%d]", colors.Match("✓"), colors.Match(sig.Name), colors.Method(dex.MethodReference(res.Method)), res.Scan.StartIndex, res.Scan.EndIndex)
			for _, w := range res.Scan.Warnings {
				utils.Indent(log.Warn, 2)(colors.Warning(w.String()))
			}
		}
		log.Infof("Resolved %d of %d signatures against %s classes in %s",
			len(sorted), len(sigs), humanize.Comma(int64(len(classes))), elapsed.Round(time.Millisecond))

		return nil
	},
}

func saveRun(conf *config.Config, dump, target, appVersion string, policy resolver.Policy, nsigs, nclasses int, results []*resolver.Result) (err error) {
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

	run := model.NewRun(filepath.Base(dump), target, appVersion, policy)
	run.Signatures = nsigs
	run.Classes = nclasses
	run.AddResults(results)
	if err := d.Save(run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	log.WithFields(log.Fields{
		"id":     run.ID,
		"driver": conf.Database.Driver,
	}).Info("Saved run")
	return nil
}
