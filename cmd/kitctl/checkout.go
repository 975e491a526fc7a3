package main

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"hydrakit/internal/checkout"
	"hydrakit/internal/configurator"
	"hydrakit/internal/model"
	"hydrakit/internal/restore"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <trac360|function360> <session>",
	Short: "Confirm a finished kit: render, upload, add to cart and start over",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		line := model.ProductLine(args[0])
		if !line.Valid() {
			return fmt.Errorf("%w: unknown product line %q", errUsage, args[0])
		}
		return withApp(func(a *app) error {
			svc, err := a.checkoutService(cmd.Context())
			if err != nil {
				return err
			}
			var res checkout.Result
			if line == model.LineTrac360 {
				st, err := configurator.OpenTrac360(args[1], a.deps())
				if err != nil {
					return err
				}
				res, err = svc.CheckoutTrac360(cmd.Context(), st)
				if err != nil {
					return err
				}
			} else {
				st, err := configurator.OpenFunction360(args[1], a.deps())
				if err != nil {
					return err
				}
				res, err = svc.CheckoutFunction360(cmd.Context(), st)
				if err != nil {
					return err
				}
			}
			return printJSON(cmd, res.Item)
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write a snapshot of every session and publish the manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			m, err := restore.Checkpoint(a.store, a.snapshotter(), a.manifestPublisher(), a.clogPath, time.Now())
			if err != nil {
				return err
			}
			log.Infof("snapshot %s sessions=%d changelog-offset=%d", m.SnapshotID, m.Sessions, m.LastChangelogOffset)
			fmt.Fprintln(cmd.OutOrStdout(), m.SnapshotID)
			return nil
		})
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders <session>",
	Short: "List the orders recorded for a session, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			repo, err := a.orderRepository(cmd.Context())
			if err != nil {
				return err
			}
			list, err := repo.ListBySession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, o := range list {
				fmt.Fprintf(w, "%s  %-11s %10.2f  %s  %s\n",
					o.CreatedAt.Format(time.RFC3339), o.Line, o.Total, o.CartID, o.PDFURL)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd, snapshotCmd, ordersCmd)
}
