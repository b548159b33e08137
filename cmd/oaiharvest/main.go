// oaiharvest harvests metadata from OAI-PMH repositories and writes it as
// JSON lines, optionally keeping records in a SQLite database.
//
//	$ oaiharvest identify -e http://export.arxiv.org/oai2
//	$ oaiharvest records -e http://export.arxiv.org/oai2 --set cs --from 2024-01-01 > cs.jsonl
//	$ oaiharvest records -e arxiv --db ~/.oaiharvest.db --window monthly
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/miku/oaiharvest"
	"github.com/miku/oaiharvest/internal/output"
	"github.com/miku/oaiharvest/internal/providers"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	endpoint      string
	prefix        string
	set           string
	from          string
	until         string
	resumeToken   string
	outputFile    string
	dbPath        string
	userAgent     string
	window        string
	providersFile string
	timeout       time.Duration
	requestRate   float64
	maxRequests   int
	verbose       bool

	logger = log.New(os.Stderr)
)

var rootCmd = &cobra.Command{
	Use:           "oaiharvest",
	Short:         "Harvest metadata from OAI-PMH repositories",
	Version:       oaiharvest.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing .env is fine
		_ = godotenv.Load()
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Level:           level,
		})
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&endpoint, "endpoint", "e", "", "endpoint URL or provider alias (default $OAI_ENDPOINT)")
	pf.StringVar(&prefix, "prefix", oaiharvest.DefaultFormat, "OAI metadataPrefix")
	pf.StringVar(&set, "set", "", "OAI set")
	pf.StringVar(&from, "from", "", "OAI from")
	pf.StringVar(&until, "until", "", "OAI until")
	pf.StringVar(&resumeToken, "resume", "", "continue a list request with this resumption token")
	pf.StringVarP(&outputFile, "output", "o", "", "write to file, gzipped if large (default stdout)")
	pf.StringVar(&dbPath, "db", "", "keep records and checkpoints in this sqlite file")
	pf.StringVar(&userAgent, "user-agent", "", "user agent (default $OAI_USER_AGENT)")
	pf.DurationVar(&timeout, "timeout", oaiharvest.DefaultTimeout, "timeout per HTTP request")
	pf.StringVar(&window, "window", "", "harvest in daily, weekly or monthly windows")
	pf.StringVar(&providersFile, "providers", "", "provider aliases (default ~/"+providers.DefaultFilename+")")
	pf.Float64Var(&requestRate, "rate", 0, "requests per second, 0 means no limit")
	pf.IntVar(&maxRequests, "max-requests", oaiharvest.DefaultMaxRequests, "requests per list, 0 means no limit")
	pf.BoolVar(&verbose, "verbose", false, "more output")
}

// target is a resolved endpoint with the defaults its provider carries.
type target struct {
	client *oaiharvest.Client
	args   oaiharvest.ListArgs
}

// newTarget resolves an endpoint or alias and builds a client for it.
// Flags win over provider defaults, which win over the environment.
func newTarget(cmd *cobra.Command, name string) (*target, error) {
	cfg, err := oaiharvest.LoadConfig()
	if err != nil {
		return nil, err
	}
	path := providersFile
	if path == "" {
		if path, err = providers.DefaultPath(); err != nil {
			return nil, err
		}
	}
	provs, err := providers.Read(path)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}
	if name == "" {
		name = cfg.Endpoint
	}
	p := provs.Lookup(name)
	if p == nil {
		return nil, oaiharvest.ErrNoEndpoint
	}
	cfg.Endpoint = p.URL
	if userAgent != "" {
		cfg.UserAgent = userAgent
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutMillis = int(timeout.Milliseconds())
	}
	args := oaiharvest.ListArgs{Prefix: prefix, Set: set, From: from, Until: until}
	if !cmd.Flags().Changed("prefix") && p.Prefix != "" {
		args.Prefix = p.Prefix
	}
	if !cmd.Flags().Changed("set") && p.Set != "" {
		args.Set = p.Set
	}
	client, err := oaiharvest.NewClient(cfg,
		oaiharvest.WithLogger(logger),
		oaiharvest.WithRegistry(registry(args.Prefix)))
	if err != nil {
		return nil, err
	}
	return &target{client: client, args: args}, nil
}

// registry decodes oai_dc into fields and keeps any other format as raw XML.
func registry(prefix string) *oaiharvest.Registry {
	reg := oaiharvest.NewRegistry()
	if prefix != "" && !reg.Has(prefix) {
		reg.Register(prefix, oaiharvest.RawDecoder(prefix))
	}
	return reg
}

func (t *target) harvester() *oaiharvest.Harvester {
	h := oaiharvest.NewHarvester(t.client)
	h.MaxRequests = maxRequests
	if requestRate > 0 {
		h.Limiter = rate.NewLimiter(rate.Limit(requestRate), 1)
	}
	return h
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns stdout or a file given with --output.
func openOutput() io.WriteCloser {
	if outputFile == "" {
		return nopCloser{os.Stdout}
	}
	return output.CreateMaybeCompressedFile(outputFile)
}

// writeJSON encodes each value as a line to the output.
func writeJSON(vs ...any) error {
	w := openOutput()
	enc := output.NewJSONLines(w)
	for _, v := range vs {
		if err := enc.Encode(v); err != nil {
			w.Close()
			return err
		}
	}
	if err := enc.Flush(); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("harvest failed", "err", err)
		os.Exit(1)
	}
}
