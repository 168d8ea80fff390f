package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	service "github.com/okian/roster/internal/app"
	"github.com/okian/roster/internal/domain/pool"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

const remoteTimeout = 30 * time.Second

type assignOptions struct {
	file     string
	size     int
	strategy string
	server   string
	rosterID string
	output   string
}

func newAssignCmd() *cobra.Command {
	var opts assignOptions
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign candidates to slots",
		Long: "Reads candidate records from a JSON or YAML file (- for stdin) and prints the slot assignment. " +
			"With --server the request is sent to a running API instead of the local engine.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssign(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Candidate records file, - for stdin")
	cmd.Flags().IntVarP(&opts.size, "size", "n", 0, "Slot count, clamped to [5, 50]; 0 uses the default")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "strength, mirror or optimal")
	cmd.Flags().StringVar(&opts.server, "server", "", "Base URL of a running roster API")
	cmd.Flags().StringVar(&opts.rosterID, "roster", "", "Stored roster id, requires --server")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table, json or yaml")
	return cmd
}

func runAssign(ctx context.Context, stdin io.Reader, stdout io.Writer, opts assignOptions) error {
	switch opts.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	if opts.rosterID != "" && opts.server == "" {
		return errors.New("--roster requires --server")
	}
	if opts.rosterID == "" && opts.file == "" {
		return errors.New("--file or --roster is required")
	}

	req := service.GenerateRequest{RosterID: opts.rosterID, Size: opts.size, Strategy: opts.strategy}
	if opts.file != "" {
		records, err := readRecords(stdin, opts.file)
		if err != nil {
			return err
		}
		req.Candidates = records
	}

	var (
		res service.Result
		err error
	)
	if opts.server != "" {
		res, err = generateRemote(ctx, opts.server, req)
	} else {
		res, err = service.New().Generate(ctx, req)
	}
	if err != nil {
		return err
	}
	return writeResult(stdout, opts.output, res)
}

// readRecords accepts a bare array of records or an object holding them
// under "candidates" or "records", encoded as JSON or YAML.
func readRecords(stdin io.Reader, path string) ([]pool.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	var doc any
	if isJSON(path, data) {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}

	if obj, ok := doc.(map[string]any); ok {
		switch {
		case obj["candidates"] != nil:
			doc = obj["candidates"]
		case obj["records"] != nil:
			doc = obj["records"]
		}
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, errors.New("decode candidates: expected a list of records")
	}
	records := make([]pool.Record, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func isJSON(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return true
	case ".yaml", ".yml":
		return false
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func generateRemote(ctx context.Context, server string, req service.GenerateRequest) (service.Result, error) {
	body, err := json.Marshal(map[string]any{
		"roster_id":  req.RosterID,
		"candidates": req.Candidates,
		"size":       req.Size,
		"strategy":   req.Strategy,
	})
	if err != nil {
		return service.Result{}, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()
	url := strings.TrimRight(server, "/") + "/assignments/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return service.Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return service.Result{}, fmt.Errorf("post %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return service.Result{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Message)
	}
	var res service.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return service.Result{}, fmt.Errorf("decode response: %w", err)
	}
	return res, nil
}

func writeResult(w io.Writer, format string, res service.Result) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "algorithm: %s\tsize: %d\tpool: %d\tfallback: %t\n", res.Algorithm, res.Size, res.PoolSize, res.Fallback)
	fmt.Fprintln(tw, "SLOT\tID\tNAME\tTIER\tWEIGHT")
	for _, a := range res.Assignments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", a.Slot, a.ID, a.Name, a.Tier, a.Weight)
	}
	return tw.Flush()
}
