package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catatsuy/h2"
)

var getConfig struct {
	Authority string
	Path      string
	Method    string
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Issue a single cleartext h2 request and print the response",
	Run: func(cmd *cobra.Command, args []string) {
		conn, err := h2.Connect(getConfig.Authority, h2.DefaultOptions())
		if err != nil {
			fmt.Fprintf(os.Stderr, "h2demo: connect: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close(h2.NoError)

		_, res, err := conn.Request(getConfig.Method, "http", getConfig.Authority, getConfig.Path, nil, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "h2demo: request: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("status: %d\n", res.StatusCode())
		for _, hf := range res.Header() {
			fmt.Printf("%s: %s\n", hf.Key(), hf.Value())
		}
		fmt.Println()
		os.Stdout.Write(res.Body())
	},
	Example: "# h2demo get --authority localhost:8080 --path /",
}

func init() {
	getCmd.Flags().StringVar(&getConfig.Authority, "authority", "localhost:8080", "host:port to connect to")
	getCmd.Flags().StringVar(&getConfig.Path, "path", "/", "request path")
	getCmd.Flags().StringVar(&getConfig.Method, "method", "GET", "request method")
	rootCmd.AddCommand(getCmd)
}
