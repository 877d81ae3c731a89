package main

import (
	"context"

	"github.com/chriscorrea/sitecat/internal/app"
	"github.com/chriscorrea/sitecat/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve classification and updates over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "", func(ctx context.Context, a *app.App) error {
			return server.New(a).Run(ctx, a.Config().Server.Addr)
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
}
