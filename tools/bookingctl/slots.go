package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/spf13/cobra"
)

type slotsQuery struct {
	BaseURL        string `json:"-"`
	BusinessID     string `json:"-"`
	Token          string `json:"-"`
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
	Date           string `json:"date"`
}

type slotView struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

func slotsCmd() *cobra.Command {
	var q slotsQuery
	var availableOnly bool
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show the slot grid of a professional for one day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if q.ProfessionalID == "" || q.ServiceID == "" {
				return errors.New("--professional-id and --service-id are required")
			}
			if q.BusinessID == "" && q.Token == "" {
				return errors.New("--business-id or --token is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			slots, err := fetchSlots(ctx, http.DefaultClient, q)
			if err != nil {
				return err
			}
			return renderSlots(cmd.OutOrStdout(), slots, availableOnly)
		},
	}
	cmd.Flags().StringVar(&q.BaseURL, "base-url", runtime.Getenv("BOOKING_URL", "http://localhost:8083"), "booking service base url")
	cmd.Flags().StringVar(&q.BusinessID, "business-id", runtime.Getenv("BUSINESS_ID", ""), "tenant id sent as "+httpx.TenantHeader)
	cmd.Flags().StringVar(&q.Token, "token", runtime.Getenv("BOOKING_TOKEN", ""), "bearer token (takes precedence over --business-id)")
	cmd.Flags().StringVar(&q.ProfessionalID, "professional-id", "", "staff member id")
	cmd.Flags().StringVar(&q.ServiceID, "service-id", "", "service id")
	cmd.Flags().StringVar(&q.Date, "date", time.Now().Format("2006-01-02"), "day in YYYY-MM-DD")
	cmd.Flags().BoolVar(&availableOnly, "available-only", false, "hide unavailable slots")
	return cmd
}

func fetchSlots(ctx context.Context, client *http.Client, q slotsQuery) ([]slotView, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(q.BaseURL, "/") + "/api/v1/public/availability"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.Token != "" {
		req.Header.Set("Authorization", "Bearer "+q.Token)
	} else {
		req.Header.Set(httpx.TenantHeader, q.BusinessID)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out struct {
		Slots []slotView `json:"slots"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}
	return out.Slots, nil
}

func renderSlots(w io.Writer, slots []slotView, availableOnly bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tAVAILABLE\tREASON")
	for _, s := range slots {
		if availableOnly && !s.Available {
			continue
		}
		reason := s.Reason
		if reason == "" || reason == "none" {
			reason = "-"
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", s.Time, s.Available, reason)
	}
	return tw.Flush()
}
