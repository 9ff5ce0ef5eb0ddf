package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func meCmd(c *apiClient) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show balance and recent history",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodGet, "/api/v1/me", nil, nil)
			if err != nil {
				return err
			}
			if raw {
				return printJSON(cmd.OutOrStdout(), body)
			}

			var account struct {
				UserID  string `json:"user_id"`
				Balance string `json:"balance"`
				History []struct {
					Seq          int64  `json:"seq"`
					Type         string `json:"type"`
					Amount       string `json:"amount"`
					Counterparty string `json:"counterparty"`
					BalanceAfter string `json:"balance_after"`
				} `json:"history"`
				Overdrafts []json.RawMessage `json:"overdrafts"`
			}
			if err := json.Unmarshal(body, &account); err != nil {
				return fmt.Errorf("decode account: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User: %s\nBalance: %s\nOverdraft attempts: %d\n\n", account.UserID, account.Balance, len(account.Overdrafts))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tTYPE\tAMOUNT\tCOUNTERPARTY\tBALANCE")
			for _, h := range account.History {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", h.Seq, h.Type, h.Amount, truncate(h.Counterparty, 20), h.BalanceAfter)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "Print the raw JSON response")
	return cmd
}

func scoreCmd(c *apiClient) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Show the current credit score",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/score"
			if history {
				path += "/history"
			}
			body, err := c.do(cmd.Context(), http.MethodGet, path, nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Show the last snapshots instead")
	return cmd
}

func remitCmd(c *apiClient) *cobra.Command {
	var description, requestID string

	cmd := &cobra.Command{
		Use:   "remit <amount> <counterparty>",
		Short: "Send money to a counterparty",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/transactions/remit", map[string]any{
				"amount":       json.Number(args[0]),
				"counterparty": args[1],
				"description":  description,
			}, idempotencyHeader(requestID))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Free-text description")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Idempotency key for safe retries")
	return cmd
}

func loanCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan operations",
	}

	request := &cobra.Command{
		Use:   "request <amount>",
		Short: "Ask for a loan decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/loans/request",
				map[string]any{"amount": json.Number(args[0])}, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	accept := &cobra.Command{
		Use:   "accept <loan-id>",
		Short: "Accept a preapproved loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/loans/"+url.PathEscape(args[0])+"/accept", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	var repayRequestID string
	repay := &cobra.Command{
		Use:   "repay <loan-id> <amount>",
		Short: "Repay part or all of a loan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/loans/"+url.PathEscape(args[0])+"/repay",
				map[string]any{"amount": json.Number(args[1])}, idempotencyHeader(repayRequestID))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	repay.Flags().StringVar(&repayRequestID, "request-id", "", "Idempotency key for safe retries")

	active := &cobra.Command{
		Use:   "active",
		Short: "Show the outstanding loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodGet, "/api/v1/loans/active", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	markDefault := &cobra.Command{
		Use:   "default <loan-id>",
		Short: "Mark a disbursed loan as defaulted (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/loans/"+url.PathEscape(args[0])+"/default", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	cmd.AddCommand(request, accept, repay, active, markDefault)
	return cmd
}

func safesendCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safesend",
		Short: "SafeSend escrow administration",
	}

	var limit int
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List proofs awaiting review (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodGet, "/api/v1/safesend/proofs/pending?limit="+strconv.Itoa(limit), nil, nil)
			if err != nil {
				return err
			}

			var page struct {
				Items []struct {
					ID          string `json:"id"`
					EscrowID    string `json:"escrow_id"`
					ProofURL    string `json:"proof_url"`
					Description string `json:"description"`
				} `json:"items"`
				Total int `json:"total"`
			}
			if err := json.Unmarshal(body, &page); err != nil {
				return fmt.Errorf("decode proofs: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROOF\tESCROW\tURL\tDESCRIPTION")
			for _, p := range page.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.EscrowID, truncate(p.ProofURL, 40), truncate(p.Description, 30))
			}
			fmt.Fprintf(tw, "\n%d pending\n", page.Total)
			return tw.Flush()
		},
	}
	pending.Flags().IntVar(&limit, "limit", 20, "Page size")

	var (
		reject bool
		reason string
	)
	review := &cobra.Command{
		Use:   "review <proof-id>",
		Short: "Approve or reject a proof (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reject && reason == "" {
				return fmt.Errorf("--reason is required when rejecting")
			}
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/safesend/proofs/"+url.PathEscape(args[0])+"/review",
				map[string]any{"approved": !reject, "reason": reason}, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	review.Flags().BoolVar(&reject, "reject", false, "Reject instead of approving")
	review.Flags().StringVar(&reason, "reason", "", "Rejection reason")

	verify := &cobra.Command{
		Use:   "verify <merchant-id>",
		Short: "Verify a merchant (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/safesend/merchants/"+url.PathEscape(args[0])+"/verify", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	refund := &cobra.Command{
		Use:   "refund <escrow-id>",
		Short: "Refund a locked escrow to its sender (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/api/v1/safesend/escrows/"+url.PathEscape(args[0])+"/refund", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	cmd.AddCommand(pending, review, verify, refund)
	return cmd
}

func ledgerCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	reconcile := &cobra.Command{
		Use:   "reconcile <user-id>",
		Short: "Check a user's balance against their transactions (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodGet, "/api/v1/admin/users/"+url.PathEscape(args[0])+"/reconcile", nil, nil)
			if err != nil {
				return err
			}

			var result struct {
				UserID            string `json:"user_id"`
				RecordedBalance   string `json:"recorded_balance"`
				CalculatedBalance string `json:"calculated_balance"`
				Difference        string `json:"difference"`
				IsReconciled      bool   `json:"is_reconciled"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("decode reconciliation: %w", err)
			}

			out := cmd.OutOrStdout()
			if result.IsReconciled {
				fmt.Fprintf(out, "Reconciliation PASSED for %s\nBalance: %s\n", result.UserID, result.RecordedBalance)
				return nil
			}
			fmt.Fprintf(out, "Reconciliation FAILED for %s\nRecorded: %s\nCalculated: %s\nDifference: %s\n",
				result.UserID, result.RecordedBalance, result.CalculatedBalance, result.Difference)
			return fmt.Errorf("user %s is not reconciled", result.UserID)
		},
	}

	var limit, offset int
	report := &cobra.Command{
		Use:   "report",
		Short: "Reconcile a page of users (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			body, err := c.do(cmd.Context(), http.MethodGet, "/api/v1/admin/reconciliation?"+q.Encode(), nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	report.Flags().IntVar(&limit, "limit", 100, "Users per page")
	report.Flags().IntVar(&offset, "offset", 0, "Users to skip")

	var (
		auditAction   string
		auditResource string
		auditUser     string
		auditLimit    int
	)
	audit := &cobra.Command{
		Use:   "audit",
		Short: "List privileged actions (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if auditAction != "" {
				q.Set("action", auditAction)
			}
			if auditResource != "" {
				q.Set("resource_id", auditResource)
			}
			if auditUser != "" {
				q.Set("user_id", auditUser)
			}
			q.Set("limit", strconv.Itoa(auditLimit))
			body, err := c.do(cmd.Context(), http.MethodGet, "/api/v1/admin/audit?"+q.Encode(), nil, nil)
			if err != nil {
				return err
			}

			var page struct {
				AuditLogs []struct {
					CreatedAt  string `json:"created_at"`
					UserID     string `json:"user_id"`
					Action     string `json:"action"`
					ResourceID string `json:"resource_id"`
					Status     string `json:"status"`
				} `json:"audit_logs"`
			}
			if err := json.Unmarshal(body, &page); err != nil {
				return fmt.Errorf("decode audit logs: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tRESOURCE\tSTATUS")
			for _, l := range page.AuditLogs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.CreatedAt, l.UserID, l.Action, truncate(l.ResourceID, 28), l.Status)
			}
			return tw.Flush()
		},
	}
	audit.Flags().StringVar(&auditAction, "action", "", "Filter by action, e.g. escrow.refund")
	audit.Flags().StringVar(&auditResource, "resource", "", "Filter by resource id")
	audit.Flags().StringVar(&auditUser, "actor", "", "Filter by acting user id")
	audit.Flags().IntVar(&auditLimit, "limit", 50, "Maximum entries")

	cmd.AddCommand(reconcile, report, audit)
	return cmd
}

func idempotencyHeader(requestID string) map[string]string {
	if requestID == "" {
		return nil
	}
	return map[string]string{"Idempotency-Key": requestID}
}
