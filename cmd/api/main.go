package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventflow/internal/httpserver"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eventflow",
		Short:         "EventFlow timesheet and billing back-office",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newGenerateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate, seed the admin account and run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer a.close()
			a.lg.Infow("schema up to date")
			return nil
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "generate-invoices",
		Short: "Generate the monthly invoices for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer a.close()
			rep, err := a.invoices.Generate(cmd.Context(), month, year, "")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.Message)
			for _, g := range rep.Generated {
				link := "-"
				if g.LienPDF != nil {
					link = *g.LienPDF
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%.2f\t%s\n", g.InvoiceID, g.ClientName, g.MontantTotal, link)
			}
			return nil
		},
	}
	now := time.Now()
	prev := now.AddDate(0, -1, 0)
	cmd.Flags().IntVar(&month, "month", int(prev.Month()), "billing month (1-12)")
	cmd.Flags().IntVar(&year, "year", prev.Year(), "billing year")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := httpserver.NewRouter(httpserver.Deps{
		DB:            a.db,
		Log:           a.lg,
		Signer:        a.signer,
		Prestations:   a.prestations,
		Invoices:      a.invoices,
		Notifier:      a.notifier,
		Metrics:       a.metrics,
		AppBaseURL:    a.cfg.AppBaseURL,
		DirectorEmail: a.cfg.SMTP.DirectorEmail,
	})
	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.lg.Infow("listening", "port", a.cfg.HTTPPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	a.lg.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
