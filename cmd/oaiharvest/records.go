package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/miku/oaiharvest"
	"github.com/miku/oaiharvest/internal/output"
	"github.com/miku/oaiharvest/internal/store"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

// DefaultEarliestDate is used, if the repository does not supply one.
var DefaultEarliestDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// sink receives harvested pages. With a store, every page is saved together
// with the cursor that continues after it.
type sink struct {
	st          *store.Store
	enc         *output.JSONLines
	endpoint    string
	args        oaiharvest.ListArgs
	checkpoints bool
	n           int
}

// key names the harvest a checkpoint belongs to. Different dates are a
// different harvest.
func (s *sink) key() store.Key {
	return store.Key{
		Endpoint: s.endpoint,
		Prefix:   s.args.Prefix,
		Set:      s.args.Set,
		From:     s.args.From,
		Until:    s.args.Until,
	}
}

func (s *sink) page(ctx context.Context) func(*oaiharvest.Page[oaiharvest.Record]) error {
	return func(p *oaiharvest.Page[oaiharvest.Record]) error {
		if s.st != nil {
			if err := s.st.SaveRecords(ctx, s.endpoint, s.args.Prefix, p.Items); err != nil {
				return err
			}
			if s.checkpoints && p.Cursor != nil {
				if err := s.st.SaveCheckpoint(ctx, s.key(), *p.Cursor); err != nil {
					return err
				}
			}
		}
		if s.enc != nil {
			for _, rec := range p.Items {
				if err := s.enc.Encode(rec); err != nil {
					return err
				}
			}
		}
		s.n += len(p.Items)
		logger.Debug("page", "endpoint", s.endpoint, "records", len(p.Items), "total", s.n)
		return nil
	}
}

// harvest runs a complete record harvest for one target. It continues from
// token or a stored checkpoint, if there is one.
func harvest(ctx context.Context, t *target, s *sink, token string) (err error) {
	h := t.harvester()
	s.endpoint = t.client.Endpoint()
	s.args = t.args
	s.checkpoints = window == ""

	if s.st != nil {
		id, berr := s.st.BeginRun(ctx, s.endpoint, s.args.Prefix, s.args.Set)
		if berr != nil {
			return berr
		}
		defer func() {
			if ferr := s.st.FinishRun(context.WithoutCancel(ctx), id, s.n, err); ferr != nil && err == nil {
				err = ferr
			}
		}()
	}

	var cursor *oaiharvest.Cursor
	switch {
	case token != "":
		cursor = &oaiharvest.Cursor{Token: token, Prefix: s.args.Prefix}
	case s.st != nil && s.checkpoints:
		if cursor, err = s.st.Checkpoint(ctx, s.key()); err != nil {
			return err
		}
	}

	switch {
	case cursor != nil:
		logger.Info("resuming", "endpoint", s.endpoint, "token", cursor.Token)
		err = h.ResumeRecords(ctx, *cursor, s.page(ctx))
	case window != "":
		w, werr := harvestWindow(ctx, t)
		if werr != nil {
			return werr
		}
		err = h.HarvestWindows(ctx, t.args, w, window, oaiharvest.GranularityDay, s.page(ctx))
	default:
		err = h.HarvestRecords(ctx, t.args, s.page(ctx))
	}
	if err != nil {
		return err
	}
	if s.st != nil && s.checkpoints {
		return s.st.ClearCheckpoint(ctx, s.key())
	}
	return nil
}

// harvestWindow returns the range for a windowed harvest. Without --from the
// earliest datestamp of the repository is used, without --until today.
func harvestWindow(ctx context.Context, t *target) (oaiharvest.Window, error) {
	var w oaiharvest.Window
	var err error
	if t.args.From != "" {
		if w.From, err = time.Parse("2006-01-02", t.args.From); err != nil {
			return w, fmt.Errorf("--from: %w", err)
		}
	} else {
		w.From = DefaultEarliestDate
		id, err := t.client.Identify(ctx)
		switch {
		case err != nil:
			logger.Warn("no earliest datestamp", "endpoint", t.client.Endpoint(), "err", err)
		case len(id.EarliestDatestamp) >= 10:
			if v, err := time.Parse("2006-01-02", id.EarliestDatestamp[:10]); err == nil {
				w.From = v
			}
		}
	}
	w.Until = time.Now().UTC()
	if t.args.Until != "" {
		if w.Until, err = time.Parse("2006-01-02", t.args.Until); err != nil {
			return w, fmt.Errorf("--until: %w", err)
		}
	}
	return w, nil
}

// openStore opens --db, or the given default if the flag is empty.
func openStore(fallback string) (*store.Store, error) {
	path := dbPath
	if path == "" {
		path = fallback
	}
	if path == "" {
		return nil, nil
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Harvest records",
	Long: `Harvest records as JSON lines. With --db, records are stored and the
cursor of each page is kept, so an interrupted harvest continues where it
stopped. Stored records are not written to stdout unless --output is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newTarget(cmd, endpoint)
		if err != nil {
			return err
		}
		st, err := openStore("")
		if err != nil {
			return err
		}
		s := &sink{st: st}
		if st != nil {
			defer st.Close()
		}
		var w io.WriteCloser
		if st == nil || outputFile != "" {
			w = openOutput()
			defer w.Close()
			s.enc = output.NewJSONLines(w)
		}
		if err := harvest(cmd.Context(), t, s, resumeToken); err != nil {
			return err
		}
		logger.Info("harvested", "endpoint", t.client.Endpoint(), "records", s.n)
		if w == nil {
			return nil
		}
		if err := s.enc.Flush(); err != nil {
			return err
		}
		return w.Close()
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
}
