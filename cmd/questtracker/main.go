// Package main implements the questtracker CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"questTracker/internal/app"
	"questTracker/internal/config"
	"questTracker/internal/service"

	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "questtracker:", describe(err))
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:           "questtracker",
	Short:         "Track Fantasy Life quest progress",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
}

var opened *app.App

// openApp loads the config and initializes logging, the store and the
// service. The app is closed after the command runs.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	opened = a
	return a, nil
}

func closeApp() {
	if opened != nil {
		opened.Close()
		opened = nil
	}
}

// describe prints business errors by message and anything else in full.
func describe(err error) string {
	var busErr *service.BusinessError
	if errors.As(err, &busErr) {
		return busErr.Message
	}
	return err.Error()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid quest id %q", raw)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
