// Command bondcache is a terminal front end for the bond reference-data
// cache: resolve single fields, dump full records, run bulk queries, and
// inspect cache behavior against a live backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bondmaster/bondcache/client"
)

var (
	configPath string
	baseURL    string
	apiKey     string
	timeout    time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bondcache",
		Short: "Cached lookups against the government bond data service",
		Long: "bondcache resolves government bond reference data through a local\n" +
			"TTL+LRU cache, polling the backend while it searches upstream sources.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "backend API key (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-call backend timeout (overrides config)")

	rootCmd.AddCommand(
		getCmd(),
		infoCmd(),
		listCmd(),
		maturingCmd(),
		searchCmd(),
		countCmd(),
		statusCmd(),
		cacheCmd(),
		benchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers file, environment, and flags, lowest to highest.
func loadConfig() (client.Config, error) {
	cfg := client.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = client.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}
	client.FromEnv(&cfg)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg, nil
}

func openClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.Open(cfg)
}

// cmdContext is cancelled on Ctrl-C so blocking polls exit cleanly.
func cmdContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func getCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "get <isin> <field>",
		Short: "Resolve one field of a bond (shorthand aliases accepted)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := cmdContext()
			defer cancel()

			var v any
			if wait {
				v, err = c.ResolveBlocking(ctx, args[0], args[1])
			} else {
				v, err = c.Resolve(ctx, args[0], args[1])
			}
			if err != nil {
				return err
			}
			fmt.Println(formatValue(v))
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "block until an in-flight lookup completes")
	return cmd
}

func infoCmd() *cobra.Command {
	var noHeaders bool

	cmd := &cobra.Command{
		Use:   "info <isin>",
		Short: "Show the full reference record of a bond",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := cmdContext()
			defer cancel()

			rows, err := c.Info(ctx, args[0], !noHeaders)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, row := range rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = formatValue(v)
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit the header row")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		secType string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list <country>",
		Short: "List ISINs of all bonds for a country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := cmdContext()
			defer cancel()

			isins, err := c.List(ctx, client.ListQuery{
				Country:      args[0],
				SecurityType: secType,
				Limit:        limit,
			})
			if err != nil {
				return err
			}
			for _, isin := range isins {
				fmt.Println(isin)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&secType, "type", "", "filter by security type: NOMINAL or INDEX_LINKED")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default 500, cap 1000)")
	return cmd
}

func maturingCmd() *cobra.Command {
	var country string

	cmd := &cobra.Command{
		Use:   "maturing <from> <to>",
		Short: "List bonds maturing within a date range (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := cmdContext()
			defer cancel()

			out, err := c.MaturityRange(ctx, args[0], args[1], country)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, m := range out {
				fmt.Fprintf(w, "%s\t%s\n", m.ISIN, m.Date)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "filter by country code")
	return cmd
}

func searchCmd() *cobra.Command {
	var filters []string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search bonds by filter criteria",
		Example: "  bondcache search -f country=DE -f min_coupon=2.0\n" +
			"  bondcache search -f security_type=INDEX_LINKED -f maturity_from=2030-01-01",
		RunE: func(cmd *cobra.Command, args []string) error {
			crit := make(map[string]string, len(filters))
			for _, f := range filters {
				k, v, ok := strings.Cut(f, "=")
				if !ok {
					return fmt.Errorf("bad filter %q, want key=value", f)
				}
				crit[k] = v
			}

			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := cmdContext()
			defer cancel()

			isins, err := c.Search(ctx, crit)
			if err != nil {
				return err
			}
			for _, isin := range isins {
				fmt.Println(isin)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as key=value (repeatable)")
	return cmd
}

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [country]",
		Short: "Count bonds held by the backend, optionally for one country",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := cmdContext()
			defer cancel()

			country := ""
			if len(args) == 1 {
				country = args[0]
			}
			n, err := c.Count(ctx, country)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe backend connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := client.Open(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := cmdContext()
			defer cancel()

			if err := c.Status(ctx); err != nil {
				return err
			}
			fmt.Printf("backend reachable at %s\n", cfg.BaseURL)
			return nil
		},
	}
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the lookup cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cache statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(c.CacheStats())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop all cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			fmt.Printf("cleared %d entries\n", c.ClearCache())
			return nil
		},
	})

	return cmd
}

// formatValue renders field projections without Go's %v float noise for
// the common scalar shapes of decoded JSON.
func formatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%g", n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", v)
	}
}
