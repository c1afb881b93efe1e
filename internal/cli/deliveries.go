package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/youmna-rabie/mcp-relay/internal/journal"
)

var (
	deliveriesAddr  string
	deliveriesLimit int
)

func init() {
	deliveriesCmd.Flags().StringVar(&deliveriesAddr, "addr", "http://localhost:3000", "base URL of a running relay")
	deliveriesCmd.Flags().IntVar(&deliveriesLimit, "limit", 20, "maximum number of deliveries to display")
	rootCmd.AddCommand(deliveriesCmd)
}

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "Print recent delivery outcomes from a running relay",
	RunE:  listDeliveries,
}

type deliveriesResponse struct {
	Deliveries []journal.Record `json:"deliveries"`
	Count      int              `json:"count"`
	Total      int              `json:"total"`
}

func listDeliveries(cmd *cobra.Command, args []string) error {
	endpoint := strings.TrimRight(deliveriesAddr, "/") + "/admin/deliveries?limit=" + url.QueryEscape(strconv.Itoa(deliveriesLimit))

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("querying relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	var body deliveriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(body.Deliveries) == 0 {
		fmt.Fprintln(out, "No deliveries recorded yet.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-40s  %-12s  %-14s  %s\n", "EVENT ID", "EVENT TYPE", "STATUS", "CHANNEL", "EVENT TIME")
	for _, d := range body.Deliveries {
		fmt.Fprintf(out, "%-36s  %-40s  %-12s  %-14s  %s\n",
			d.EventID, d.EventType, d.Status, d.Channel, d.EventDateTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "\nshowing %d of %d\n", body.Count, body.Total)
	return nil
}
