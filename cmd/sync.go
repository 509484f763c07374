package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/policyengine/grantkit/internal/store"
	syncpkg "github.com/policyengine/grantkit/internal/sync"
	"github.com/policyengine/grantkit/pkg/notion"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize grant directories with the shared backend",
}

var syncPushCmd = &cobra.Command{
	Use:   "push [grant-id]",
	Short: "Upload local grants and responses to the backend",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSyncPush,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull [grant-id]",
	Short: "Download grants and responses into local directories",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSyncPull,
}

func init() {
	syncPushCmd.Flags().Bool("notion", false, "also mirror grant status to the Notion tracker")
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncPullCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	grantID := ""
	if len(args) > 0 {
		grantID = args[0]
	}

	syncer := syncpkg.NewSyncer(st, cfg.Grants.Dir)
	stats, err := syncer.Push(ctx, grantID)
	if err != nil {
		return err
	}
	printSyncStats("pushed", stats)

	mirror, _ := cmd.Flags().GetBool("notion")
	if mirror && cfg.Notion.Token != "" && cfg.Notion.TrackerDB != "" {
		grants, err := st.ListGrants(ctx, store.GrantFilter{})
		if err != nil {
			return err
		}
		client := notion.NewClient(cfg.Notion.Token)
		mirrored, err := notion.MirrorGrants(ctx, client, cfg.Notion.TrackerDB, grants)
		if err != nil {
			return err
		}
		zap.S().Infow("mirrored to notion", "created", mirrored.Created, "updated", mirrored.Updated)
	}

	if len(stats.Errors) > 0 {
		return fmt.Errorf("sync completed with %d error(s)", len(stats.Errors))
	}
	return nil
}

func runSyncPull(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	grantID := ""
	if len(args) > 0 {
		grantID = args[0]
	}

	syncer := syncpkg.NewSyncer(st, cfg.Grants.Dir)
	stats, err := syncer.Pull(ctx, grantID)
	if err != nil {
		return err
	}
	printSyncStats("pulled", stats)
	return nil
}

func printSyncStats(verb string, stats *syncpkg.Stats) {
	fmt.Printf("%s %d grant(s), %d response(s)\n", verb, stats.Grants, stats.Responses)
	if stats.FilesWritten > 0 {
		fmt.Printf("wrote %d file(s)\n", stats.FilesWritten)
	}
	for _, e := range stats.Errors {
		fmt.Printf("error: %s\n", e)
	}
}
