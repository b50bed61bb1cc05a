package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agendash/internal/capture"
	appLog "agendash/internal/log"
)

func newSnapshotCmd() *cobra.Command {
	var (
		baseURL string
		out     string
		mode    string
		week    int
		month   string
		width   int
		height  int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a PNG of a running dashboard via headless Chromium",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = "http://" + conf.Listen + "/"
			}

			target, err := dashboardURL(baseURL, mode, week, month)
			if err != nil {
				return err
			}

			opts := capture.CaptureOptions{
				URL:        target,
				OutputPath: out,
				Width:      width,
				Height:     height,
				Timeout:    timeout,
			}
			if conf.BasicAuth != nil {
				opts.Username = conf.BasicAuth.Username
				opts.Password = conf.BasicAuth.Password
			}

			appLog.Info("capturing dashboard", "url", target, "output", out)
			if err := capture.CaptureDashboardPNG(contextOrBackground(cmd), opts); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Dashboard URL (default http://<listen>/)")
	cmd.Flags().StringVarP(&out, "out", "o", "agendash.png", "Output PNG path")
	cmd.Flags().StringVar(&mode, "mode", "", "View mode to capture: daily, weekly or monthly")
	cmd.Flags().IntVar(&week, "week", 0, "Week offset (weekly mode)")
	cmd.Flags().StringVar(&month, "month", "", "Month name (monthly mode)")
	cmd.Flags().IntVar(&width, "width", capture.DefaultWidth, "Viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", capture.DefaultHeight, "Viewport height in pixels")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeoutSec*time.Second, "Capture timeout")
	return cmd
}

// dashboardURL appends the view selection to base as query parameters.
func dashboardURL(base, mode string, week int, month string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid dashboard url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid dashboard url %q: scheme and host are required", base)
	}
	q := u.Query()
	if mode = strings.TrimSpace(mode); mode != "" {
		q.Set("mode", mode)
	}
	if week != 0 {
		q.Set("week", strconv.Itoa(week))
	}
	if month = strings.TrimSpace(month); month != "" {
		q.Set("month", month)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
