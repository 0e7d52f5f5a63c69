package cmd

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catatsuy/h2"
)

var serveConfig struct {
	Addr                 string
	MaxConcurrentStreams uint32
	EnablePush           bool
	Verbose              bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a cleartext h2 server that echoes the request body",
	Run: func(cmd *cobra.Command, args []string) {
		log, _ := zap.NewDevelopment()
		if !serveConfig.Verbose {
			log = zap.NewNop()
		}

		opts := h2.DefaultOptions()
		opts.Logger = log
		if serveConfig.MaxConcurrentStreams != 0 {
			opts.MaxConcurrentStreams = serveConfig.MaxConcurrentStreams
		}
		opts.EnablePush = serveConfig.EnablePush

		ln, err := net.Listen("tcp", serveConfig.Addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "h2demo: listen: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("h2demo: serving on %s\n", ln.Addr())
		if err := h2.Serve(ln, echoHandler, opts); err != nil {
			fmt.Fprintf(os.Stderr, "h2demo: serve: %v\n", err)
			os.Exit(1)
		}
	},
	Example: "# h2demo serve --addr :8080",
}

func echoHandler(st *h2.Stream, req *h2.Request, rw *h2.ResponseWriter) {
	rw.Header().SetStatusCode(200)
	rw.Header().Set("x-h2demo-method", string(req.Method()))
	rw.Header().Set("x-h2demo-path", string(req.Path()))
	if _, err := rw.Write(req.Body()); err != nil {
		return
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig.Addr, "addr", ":8080", "Address to listen on")
	serveCmd.Flags().Uint32Var(&serveConfig.MaxConcurrentStreams, "max-concurrent-streams", 0, "Override MAX_CONCURRENT_STREAMS (0 keeps the default)")
	serveCmd.Flags().BoolVar(&serveConfig.EnablePush, "enable-push", true, "Advertise server push support")
	serveCmd.Flags().BoolVar(&serveConfig.Verbose, "verbose", false, "Log connection/stream/frame events")
	rootCmd.AddCommand(serveCmd)
}
