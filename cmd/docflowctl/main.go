// Package main 是运维命令行工具，复用服务端的装配逻辑直接调用业务层。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docflow-go/internal/app"
	"docflow-go/internal/config"
	"docflow-go/pkg/log"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docflowctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docflowctl",
		Short: "docflow operator CLI",
		Long: `docflowctl runs maintenance tasks against the document registry, the object store
and the processing queue using the same configuration as the server.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "Config file to load (empty uses environment only)")
	cmd.AddCommand(
		newSendPendingCmd(),
		newAbortStaleCmd(),
		newSweepOrphansCmd(),
		newImportCmd(),
	)
	return cmd
}

// withApp 加载配置、装配组件并在命令结束后释放资源。
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Init(cfg.Log.Level, "console", "")
	defer log.Sync()

	a, err := app.Build(ctx, *cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newSendPendingCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "send-pending",
		Short: "Publish pending documents to the processing queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app.App) error {
				msg, err := a.Upload.SendPendingDocumentsToQueue(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Only send the document with this id")
	return cmd
}

func newAbortStaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort-stale",
		Short: "Abort multipart uploads older than reconcile.stale_upload_age",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app.App) error {
				n, err := a.Reconcile.AbortStaleUploads(ctx, a.Config.Reconcile.StaleUploadAge)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "aborted %d stale upload(s)\n", n)
				return nil
			})
		},
	}
	return cmd
}

func newSweepOrphansCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "sweep-orphans",
		Short: "List stored objects that have no document record",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app.App) error {
				keys, err := a.Reconcile.SweepOrphans(ctx, a.Config.Reconcile.OrphanGrace, remove)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				verb := "found"
				if remove {
					verb = "removed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d orphan object(s)\n", verb, len(keys))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the orphans instead of only reporting them")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Upload every file in a directory through the multipart flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app.App) error {
				imported, skipped, err := importDir(ctx, a.Upload, newPartUploader(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d file(s), skipped %d\n", imported, skipped)
				return nil
			})
		},
	}
	return cmd
}
