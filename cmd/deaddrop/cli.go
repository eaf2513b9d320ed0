package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolftrace/deaddrop/pkg/client"
	"github.com/wolftrace/deaddrop/pkg/types"
)

func newAPIClient() *client.Client {
	return client.New(flagAPIAddr, flagOfficer)
}

var reportCmd = &cobra.Command{
	Use:   "report TEXT",
	Short: "Submit a tip to a running engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caseID, _ := cmd.Flags().GetString("case")
		mediaURL, _ := cmd.Flags().GetString("media-url")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		building, _ := cmd.Flags().GetString("building")

		sub := client.ReportSubmission{
			Text:     args[0],
			CaseID:   caseID,
			MediaURL: mediaURL,
		}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			sub.Location = &types.Location{Lat: lat, Lng: lng, Building: building}
		}

		report, err := newAPIClient().SubmitReport(cmd.Context(), sub)
		if err != nil {
			return err
		}
		fmt.Printf("Report filed: %s\n", report.ReportID)
		fmt.Printf("Case: %s\n", report.CaseID)
		return nil
	},
}

var casesCmd = &cobra.Command{
	Use:   "cases [CASE_ID]",
	Short: "List cases, or show one case's evidence graph",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient()
		if len(args) == 1 {
			snap, err := c.GetCase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCase(snap)
			return nil
		}

		cases, err := c.ListCases(cmd.Context())
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			fmt.Println("No cases.")
			return nil
		}
		for _, cs := range cases {
			title := ""
			if t, ok := cs.Metadata["title"].(string); ok {
				title = "  " + t
			}
			fmt.Printf("%s  reports=%d nodes=%d edges=%d%s\n",
				cs.CaseID, cs.ReportCount, cs.NodeCount, cs.EdgeCount, title)
		}
		return nil
	},
}

func printCase(snap *types.CaseSnapshot) {
	fmt.Printf("Case %s\n", snap.CaseID)
	if title, ok := snap.Metadata["title"].(string); ok {
		fmt.Printf("Title: %s\n", title)
	}
	if status, ok := snap.Metadata["status"].(string); ok {
		fmt.Printf("Status: %s\n", status)
	}
	fmt.Printf("\nNodes (%d):\n", len(snap.Nodes))
	for _, n := range snap.Nodes {
		extra := ""
		if role, ok := n.Data["semantic_role"].(string); ok {
			extra = "  role=" + role
		}
		fmt.Printf("  %s  %s%s\n", n.ID, n.Kind, extra)
	}
	fmt.Printf("\nEdges (%d):\n", len(snap.Edges))
	for _, e := range snap.Edges {
		fmt.Printf("  %s -[%s]-> %s\n", e.SourceID, e.Kind, e.TargetID)
	}
}

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Draft and approve public safety alerts",
}

var alertDraftCmd = &cobra.Command{
	Use:   "draft CASE_ID",
	Short: "Compose an alert draft for a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, _ := cmd.Flags().GetString("notes")
		alert, err := newAPIClient().DraftAlert(cmd.Context(), args[0], notes)
		if err != nil {
			return err
		}
		fmt.Printf("Draft %s (%s)\n\n%s\n", alert.ID, alert.Status, alert.Text)
		return nil
	},
}

var alertApproveCmd = &cobra.Command{
	Use:   "approve ALERT_ID",
	Short: "Approve and publish a drafted alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		alert, err := newAPIClient().ApproveAlert(cmd.Context(), args[0], text)
		if err != nil {
			return err
		}
		fmt.Printf("Published %s\n\n%s\n", alert.ID, alert.Text)
		if alert.AudioURL != "" {
			fmt.Printf("\nAudio: %s\n", alert.AudioURL)
		}
		return nil
	},
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		alerts, err := newAPIClient().ListAlerts(cmd.Context())
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}
		for _, a := range alerts {
			fmt.Printf("%s  %s  case=%s\n", a.ID, a.Status, a.CaseID)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo cases into a running engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newAPIClient().Seed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d demo cases\n", n)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("case", "", "Attach the tip to an existing case")
	reportCmd.Flags().String("media-url", "", "URL of attached media")
	reportCmd.Flags().Float64("lat", 0, "Latitude of the sighting")
	reportCmd.Flags().Float64("lng", 0, "Longitude of the sighting")
	reportCmd.Flags().String("building", "", "Building name")

	alertDraftCmd.Flags().String("notes", "", "Officer notes for the alert composer")
	alertCmd.AddCommand(alertDraftCmd)
	alertCmd.AddCommand(alertApproveCmd)
	alertCmd.AddCommand(alertListCmd)
}
