// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/trackfile"
)

func (a *app) verifyCommand() *command {
	var common commonFlags
	return &command{
		name:    "verify",
		summary: "Check every record's digest and the header's compatibility",
		description: "Recompute the keyed digest of every record and compare it with the\n" +
			"stored one, and check that this build can decode the recording.\n" +
			"Exits 1 when any check fails.",
		usage: "capturetrack verify FILE [flags]",
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			common.register(flagSet)
			return flagSet
		},
		run: func(args []string) error {
			if err := requireArgs(args, 1, "capturetrack verify FILE"); err != nil {
				return err
			}
			_, logger, err := common.load(a)
			if err != nil {
				return err
			}
			reader, err := trackfile.Open(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()
			style := newStyles(a.stdout)

			failed := false
			header := reader.Header()
			if err := header.Validate(snapshot.KindNames()); err != nil {
				fmt.Fprintf(a.stdout, "%s %v\n", style.bad.Render("incompatible:"), err)
				failed = true
			}
			if reader.Truncated() {
				logger.Warn("recording ends inside a record; it was dropped", "path", reader.Path())
			}

			if err := reader.Verify(); err != nil {
				failed = true
				var joined interface{ Unwrap() []error }
				if errors.As(err, &joined) {
					for _, recordErr := range joined.Unwrap() {
						fmt.Fprintf(a.stdout, "%s %v\n", style.bad.Render("corrupt:"), recordErr)
					}
				} else {
					fmt.Fprintf(a.stdout, "%s %v\n", style.bad.Render("corrupt:"), err)
				}
			}

			if failed {
				return &exitError{code: 1}
			}
			fmt.Fprintf(a.stdout, "%s %d records verified\n", style.good.Render("ok:"), reader.Len())
			return nil
		},
	}
}
