package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/miku/oaiharvest/internal/store"
	"github.com/spf13/cobra"
)

// DefaultDatabase is used by sync when --db is not given.
const DefaultDatabase = "~/.oaiharvest.db"

func worker(ctx context.Context, cmd *cobra.Command, st *store.Store, queue chan string, wg *sync.WaitGroup) {
	defer wg.Done()
	for name := range queue {
		t, err := newTarget(cmd, name)
		if err != nil {
			logger.Error("failed", "endpoint", name, "err", err)
			continue
		}
		s := &sink{st: st}
		if err := harvest(ctx, t, s, ""); err != nil {
			logger.Error("failed", "endpoint", t.client.Endpoint(), "records", s.n, "err", err)
			continue
		}
		logger.Info("done", "endpoint", t.client.Endpoint(), "records", s.n)
	}
}

var syncCmd = &cobra.Command{
	Use:   "sync [endpoints-file]",
	Short: "Harvest many endpoints into the database",
	Long: `Harvest records of all endpoints or aliases listed one per line in a file
or on stdin into the database, in parallel.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")
		if workers < 1 {
			workers = 1
		}
		var reader io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			reader = f
		}
		st, err := openStore(DefaultDatabase)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		queue := make(chan string)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go worker(ctx, cmd, st, queue, &wg)
		}

		rdr := bufio.NewScanner(reader)
		for rdr.Scan() {
			name := strings.TrimSpace(rdr.Text())
			if name == "" || strings.HasPrefix(name, "#") {
				continue
			}
			select {
			case queue <- name:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		close(queue)
		wg.Wait()
		if err := rdr.Err(); err != nil {
			return err
		}
		return ctx.Err()
	},
}

func init() {
	syncCmd.Flags().IntP("workers", "w", 8, "endpoints harvested in parallel")
	rootCmd.AddCommand(syncCmd)
}
