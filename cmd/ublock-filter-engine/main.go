package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/bnema/ublock-filter-engine/internal/subscription"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     models.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ublock-filter-engine",
	Short: "Compile uBlock filter lists and match requests against them",
	Long: `A filtering engine for uBlock Origin and Adblock Plus filter lists.
It compiles the configured lists, decides whether requests are blocked,
redirected or given a Content-Security-Policy, and returns the cosmetic
CSS and scripts for pages.`,
	SilenceUsage: true,
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Download and compile the filter lists, then print statistics",
	RunE:  runCompile,
}

var checkCmd = &cobra.Command{
	Use:   "check URL",
	Short: "Print the decision for a request",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var cosmeticCmd = &cobra.Command{
	Use:   "cosmetic URL",
	Short: "Print the cosmetic snippets for a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runCosmetic,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve decisions over HTTP and keep the lists up to date",
	RunE:  runServe,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured filter lists",
	RunE:  runList,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runInit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./configs/filter_lists.toml)")

	compileCmd.Flags().Bool("verbose", false, "verbose output")

	checkCmd.Flags().StringP("page", "p", "", "URL of the page making the request")
	checkCmd.Flags().StringP("type", "t", "other", "request type (script, image, document, ...)")
	checkCmd.Flags().StringP("method", "m", "GET", "request method")

	serveCmd.Flags().String("addr", "", "listen address (default: serve.addr from config)")

	rootCmd.AddCommand(compileCmd, checkCmd, cosmeticCmd, serveCmd, listCmd, initCmd)
}

// signalContext returns a context canceled on SIGINT and SIGTERM.
func signalContext() (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCompile(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(nil)
	if err != nil {
		return err
	}

	fmt.Printf("Compiling %d filter lists...\n", len(a.lists))

	stats, err := a.subs.Reload(ctx)
	printListStats(stats, verbose)
	if err != nil {
		return err
	}

	rs := a.engine.Rules().Stats()
	fmt.Printf("\nRule set:\n")
	fmt.Printf("  Blocking: %d (important: %d), exceptions: %d, page exceptions: %d\n",
		rs.Blocking, rs.Important, rs.Exception, rs.PageException)
	fmt.Printf("  CSP: %d (exceptions: %d)\n", rs.CSP, rs.CSPException)
	fmt.Printf("  Cosmetic: %d (exceptions: %d)\n", rs.Cosmetic, rs.CosmeticException)
	fmt.Printf("  Duplicates: %d, removed by badfilter: %d\n", rs.Duplicates, rs.RemovedByBadFilter)
	fmt.Printf("  Total: %d\n", rs.Total())

	fmt.Println("\nDone!")
	return nil
}

// printListStats prints the outcome of every list and the summary of the
// skipped filters.
func printListStats(stats []subscription.ListStats, verbose bool) {
	totalSkips := make(map[string]int)

	for _, s := range stats {
		fmt.Printf("\n  %s\n", s.Name)
		if s.Err != nil {
			fmt.Printf("    ERROR: %v\n", s.Err)
			continue
		}

		fmt.Printf("    Compiled: %d filters (skipped: %d)\n", s.Filters, s.Stats.Unsupported)
		if verbose {
			fmt.Printf("    Parsed: %d total, %d network, %d cosmetic, %d exceptions, %d badfilter\n",
				s.Stats.Total, s.Stats.Network, s.Stats.Cosmetic, s.Stats.Exception, s.Stats.BadFilter)
			if s.Stats.MissingResources > 0 {
				fmt.Printf("    Missing resources: %d\n", s.Stats.MissingResources)
			}
		}

		for reason, count := range s.Stats.SkipReasons {
			if verbose {
				fmt.Printf("      - %s: %d\n", reason, count)
			}
			totalSkips[reason] += count
		}
	}

	if len(totalSkips) == 0 {
		return
	}

	reasons := make([]string, 0, len(totalSkips))
	for reason := range totalSkips {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	fmt.Printf("\nSkipped filters summary:\n")
	for _, reason := range reasons {
		fmt.Printf("  %s: %d\n", reason, totalSkips[reason])
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetString("page")
	typeName, _ := cmd.Flags().GetString("type")
	method, _ := cmd.Flags().GetString("method")

	typ, ok := models.ParseElementType(typeName)
	if !ok || !models.RequestTypes.Has(typ) {
		return fmt.Errorf("unknown request type %q", typeName)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(nil)
	if err != nil {
		return err
	}

	if _, err = a.subs.Reload(ctx); err != nil {
		return err
	}

	sink := &printSink{}
	d := a.intercept.Intercept(&models.Request{
		URL:     args[0],
		PageURL: page,
		Type:    typ,
		Method:  method,
	}, sink)

	fmt.Printf("%s\n", d.Action)
	if d.Filter != nil {
		fmt.Printf("  rule: %s\n", d.Filter.Rule)
	}
	sink.print()

	return nil
}

func runCosmetic(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(nil)
	if err != nil {
		return err
	}

	if _, err = a.subs.Reload(ctx); err != nil {
		return err
	}

	snippets := a.engine.CosmeticRulesFor(args[0])
	if len(snippets) == 0 {
		fmt.Println("No cosmetic rules")
		return nil
	}

	for i, s := range snippets {
		fmt.Printf("/* %d: %s */\n%s\n", i+1, s.Kind, s.Text)
	}

	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	fmt.Println("Configured filter lists:")
	fmt.Println()
	for _, list := range cfg.Lists {
		status := "enabled"
		if !list.Enabled {
			status = "disabled"
		}

		source := list.URL
		if list.IsLocal() {
			source = list.Path
		}

		fmt.Printf("  [%s] %s\n", status, list.Name)
		fmt.Printf("         %s\n\n", source)
	}
	return nil
}
