package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bindery/internal/adept"
	"bindery/internal/drm"
	"bindery/internal/fulfillment"
	"bindery/internal/identity"
	"bindery/internal/runner"
)

// errOutcomeFailed signals a failed workflow whose message was already
// printed to stdout; main exits non-zero without printing it again.
var errOutcomeFailed = errors.New("workflow failed")

// Cryptographic collaborators. They are nil in the default build; workflows
// that need them fail with a clear message rather than pretending to work.
var (
	identityProvider   identity.Provider
	containerDecryptor drm.ContainerDecryptor
	documentPatcher    drm.DocumentPatcher
)

// runWorkflow executes fn off the interactive goroutine, streaming progress
// to stderr and the terminal outcome to stdout.
func runWorkflow(cmd *cobra.Command, ctx *commandContext, name string, fn runner.TaskFunc) error {
	task := runner.Start(cmd.Context(), ctx.ensureLogger(), name, fn)
	outcome := task.Wait(runner.ReporterFunc(func(message string) {
		fmt.Fprintln(cmd.ErrOrStderr(), message)
	}))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderOutcomeLine(outcome.Message, outcome.Success, shouldColorize(out)))
	if !outcome.Success {
		return errOutcomeFailed
	}
	return nil
}

func newAuthorizeCommand(ctx *commandContext) *cobra.Command {
	var user string
	var password string
	var clientVersion string

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Authorize this device with an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			authorizer := identity.NewAuthorizer(cfg, identityProvider, ctx.ensureLogger())
			cred := identity.Credential{ID: user, Secret: password, Version: clientVersion}
			return runWorkflow(cmd, ctx, "authorize", func(runCtx context.Context, report runner.Reporter) runner.Outcome {
				return authorizer.Authorize(runCtx, cred, report)
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Account identifier (email)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.Flags().StringVar(&clientVersion, "version", "2.0.1", "Client version to report")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newFulfillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fulfill <file.acsm>",
		Short: "Fulfill a license request into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			fulfiller := newFulfiller(ctx)
			return runWorkflow(cmd, ctx, "fulfill", func(runCtx context.Context, report runner.Reporter) runner.Outcome {
				return fulfiller.Run(runCtx, args[0], report, nil)
			})
		},
	}
}

func newDecryptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <input.epub> <output.epub>",
		Short: "Decrypt a fulfilled EPUB using the exported key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dispatcher := drm.NewDispatcher(containerDecryptor, ctx.ensureLogger())
			return runWorkflow(cmd, ctx, "decrypt", func(runCtx context.Context, report runner.Reporter) runner.Outcome {
				return dispatcher.Decrypt(runCtx, cfg.KeyPath(), args[0], args[1], report)
			})
		},
	}
}

func newFulfiller(ctx *commandContext) *fulfillment.Fulfiller {
	cfg, _ := ctx.ensureConfig()
	client := adept.NewClient(adept.ClientOptions{
		UserAgent:       cfg.Fulfillment.UserAgent,
		RequestTimeout:  time.Duration(cfg.Fulfillment.RequestTimeout) * time.Second,
		DownloadTimeout: time.Duration(cfg.Fulfillment.DownloadTimeout) * time.Second,
	})
	return fulfillment.New(cfg, client, documentPatcher, ctx.ensureLogger())
}
