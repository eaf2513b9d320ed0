/*
Package client provides a Go client library for the engine's HTTP API.

It wraps the REST endpoints with type-safe methods so the CLI (and any
other Go tooling) never builds requests by hand.

# Usage

	c := client.New("localhost:8420", "officer-7")

	report, err := c.SubmitReport(ctx, client.ReportSubmission{
		Text: "crowd gathering near the clocktower",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("filed as %s in %s\n", report.ReportID, report.CaseID)

	cases, err := c.ListCases(ctx)

Errors carry the API's error message and status code. The officer ID is
sent as the X-Officer-ID header on every request so curation and alert
actions land in the audit trail under the right actor.

The client is safe for concurrent use; it keeps no mutable state beyond
the underlying http.Client.
*/
package client
