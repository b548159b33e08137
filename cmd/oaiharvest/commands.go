package main

import (
	"github.com/miku/oaiharvest"
	"github.com/miku/oaiharvest/internal/output"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Show repository identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newTarget(cmd, endpoint)
		if err != nil {
			return err
		}
		id, err := t.client.Identify(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(id)
	},
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List metadata formats, of the repository or a single item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newTarget(cmd, endpoint)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")
		formats, err := t.client.ListMetadataFormats(cmd.Context(), id)
		if err != nil {
			return err
		}
		vs := make([]any, len(formats))
		for i, f := range formats {
			vs[i] = f
		}
		return writeJSON(vs...)
	},
}

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "List the set hierarchy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newTarget(cmd, endpoint)
		if err != nil {
			return err
		}
		w := openOutput()
		defer w.Close()
		enc := output.NewJSONLines(w)
		fn := func(p *oaiharvest.Page[oaiharvest.Set]) error {
			for {
				s, ok := p.Next()
				if !ok {
					return nil
				}
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
		}
		h := t.harvester()
		if resumeToken != "" {
			err = h.ResumeSets(cmd.Context(), oaiharvest.Cursor{Token: resumeToken}, fn)
		} else {
			err = h.HarvestSets(cmd.Context(), fn)
		}
		if err != nil {
			return err
		}
		if err := enc.Flush(); err != nil {
			return err
		}
		logger.Debug("sets", "count", enc.Count())
		return w.Close()
	},
}

var getCmd = &cobra.Command{
	Use:   "get <identifier>",
	Short: "Retrieve a single record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newTarget(cmd, endpoint)
		if err != nil {
			return err
		}
		rec, err := t.client.GetRecord(cmd.Context(), args[0], t.args.Prefix)
		if err != nil {
			return err
		}
		return writeJSON(rec)
	},
}

var identifiersCmd = &cobra.Command{
	Use:   "identifiers",
	Short: "Harvest record headers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newTarget(cmd, endpoint)
		if err != nil {
			return err
		}
		w := openOutput()
		defer w.Close()
		enc := output.NewJSONLines(w)
		fn := func(p *oaiharvest.Page[oaiharvest.Header]) error {
			for _, h := range p.Items {
				if err := enc.Encode(h); err != nil {
					return err
				}
			}
			return nil
		}
		h := t.harvester()
		if resumeToken != "" {
			cursor := oaiharvest.Cursor{Token: resumeToken, Prefix: t.args.Prefix}
			err = h.ResumeIdentifiers(cmd.Context(), cursor, fn)
		} else {
			err = h.HarvestIdentifiers(cmd.Context(), t.args, fn)
		}
		if err != nil {
			return err
		}
		if err := enc.Flush(); err != nil {
			return err
		}
		logger.Info("harvested", "endpoint", t.client.Endpoint(), "headers", enc.Count())
		return w.Close()
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show identity, formats and sets of a repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := newTarget(cmd, endpoint)
		if err != nil {
			return err
		}
		info, err := t.client.About(cmd.Context())
		if err != nil {
			return err
		}
		for _, err := range info.Errors {
			logger.Warn("verb failed", "endpoint", t.client.Endpoint(), "err", err)
		}
		return writeJSON(info)
	},
}

func init() {
	formatsCmd.Flags().String("id", "", "list formats for this item only")
	rootCmd.AddCommand(identifyCmd, formatsCmd, setsCmd, getCmd, identifiersCmd, infoCmd)
}
