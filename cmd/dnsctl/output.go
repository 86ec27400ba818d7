package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/evanofslack/dnsctl/internal/provider"
	"github.com/evanofslack/dnsctl/internal/reconcile"
)

type recordJSON struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
}

func toJSON(records []provider.Record) []recordJSON {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		out = append(out, recordJSON{ID: r.ID, Type: r.Type, Name: r.Name, Content: r.Content, TTL: int(r.TTL.Seconds())})
	}
	return out
}

func writeRecords(w io.Writer, format string, records []provider.Record) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSON(records))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tCONTENT\tTTL")
	for _, r := range records {
		ttl := ""
		if r.TTL > 0 {
			ttl = strconv.Itoa(int(r.TTL.Seconds()))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Name, r.Content, ttl)
	}
	return tw.Flush()
}

func writeResult(w io.Writer, format, action string, ok bool) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(map[string]any{"action": action, "success": ok})
	}
	_, err := fmt.Fprintln(w, ok)
	return err
}

func writeResults(w io.Writer, format string, results reconcile.Results, dryRun bool) error {
	if format == "json" {
		failures := make([]map[string]any, 0, len(results.Failures))
		for _, f := range results.Failures {
			failures = append(failures, map[string]any{"op": f.Op, "record": toJSON([]provider.Record{f.Record})[0], "error": f.Error})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"dryRun":   dryRun,
			"created":  toJSON(results.Created),
			"updated":  toJSON(results.Updated),
			"deleted":  toJSON(results.Deleted),
			"skipped":  toJSON(results.Skipped),
			"failures": failures,
		})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OP\tTYPE\tNAME\tCONTENT\tERROR")
	rows := []struct {
		op      string
		records []provider.Record
	}{
		{"create", results.Created},
		{"update", results.Updated},
		{"delete", results.Deleted},
		{"skip", results.Skipped},
	}
	for _, row := range rows {
		for _, r := range row.records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.op, r.Type, r.Name, r.Content)
		}
	}
	for _, f := range results.Failures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Op, f.Record.Type, f.Record.Name, f.Record.Content, f.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if dryRun {
		_, err := fmt.Fprintln(w, "dry run: no changes applied")
		return err
	}
	return nil
}
