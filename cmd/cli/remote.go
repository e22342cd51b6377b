package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// list and stats talk to a running ncm-fetch server instead of opening
// the catalog directly, so they work while the server holds the database.

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog records via the server",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		url := serverURL + "/api/v1/downloads"
		if status != "" {
			url += "?status=" + status
		}

		resp, err := http.Get(url)
		if err != nil {
			fatal(err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fatal(fmt.Errorf("server: %s", string(body)))
		}

		var records []map[string]interface{}
		if err := json.Unmarshal(body, &records); err != nil {
			fatal(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tARTIST\tSTATUS\tSIZE\tFILE")
		for _, r := range records {
			fmt.Fprintf(w, "%.0f\t%s\t%s\t%v\t%.0f\t%s\n",
				r["id"], r["title"], r["artist"], r["status"], r["file_size"], r["file_path"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics via the server",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/downloads/stats")
		if err != nil {
			fatal(err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fatal(fmt.Errorf("server: %s", string(body)))
		}

		var stats map[string]interface{}
		if err := json.Unmarshal(body, &stats); err != nil {
			fatal(err)
		}

		fmt.Println("Catalog Statistics:")
		fmt.Printf("  Total:       %v\n", stats["total"])
		fmt.Printf("  Pending:     %v\n", stats["pending"])
		fmt.Printf("  Downloading: %v\n", stats["downloading"])
		fmt.Printf("  Completed:   %v\n", stats["completed"])
		fmt.Printf("  Total bytes: %v\n", stats["total_bytes"])
	},
}

func init() {
	listCmd.Flags().String("status", "", "Filter by status code (0 pending, 1 downloading, 2 completed)")
}
