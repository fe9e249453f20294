package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/mcpserver"
	"github.com/pable/go-playcall/internal/metrics"
)

var (
	serveAddr string
	servePath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the consolidation session as MCP tools over HTTP",
	Long: `Start a streamable-HTTP MCP server over one in-memory session. When
mcp.api_key (PLAYCALL_MCP_API_KEY) is set, every request must carry it in
the X-API-Key header or as a bearer token. Prometheus metrics are served on
/metrics unless mcp.metrics is false.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from mcp.addr)")
	serveCmd.Flags().StringVar(&servePath, "path", "", "MCP endpoint path (default from mcp.path)")
}

func runServe(cmd *cobra.Command, args []string) error {
	sess, claude, err := newSession(false)
	if err != nil {
		return err
	}
	if claude == nil {
		log.Warn("no Anthropic API key: add_rankings and analysis tools will fail; add_records still works")
	}

	addr := cfg.MCP.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	opts := mcpserver.Options{
		Path:          cfg.MCP.Path,
		APIKey:        cfg.MCP.APIKey,
		FAABThreshold: cfg.Analysis.FAABThreshold,
	}
	if cfg.MCP.Metrics {
		opts.Metrics = metrics.NewRecorder(sess.Len)
	}
	if servePath != "" {
		opts.Path = servePath
	}

	var srv *mcpserver.Server
	if claude != nil {
		srv = mcpserver.New(sess, claude, opts, log)
	} else {
		srv = mcpserver.New(sess, nil, opts, log)
	}
	return srv.ListenAndServe(cmd.Context(), addr)
}
