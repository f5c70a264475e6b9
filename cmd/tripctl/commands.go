package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/shiva/tripplanner/internal/ai"
	"github.com/shiva/tripplanner/internal/middleware"
	"github.com/shiva/tripplanner/internal/model"
	"github.com/shiva/tripplanner/internal/service"
	"github.com/shiva/tripplanner/pkg/currency"
)

// ─── verify ─────────────────────────────────────────────────

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <destination>",
		Short: "Classify a destination against the advisory tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog()
			if err != nil {
				return err
			}
			gate := service.NewSafetyGate(c)
			destination := strings.Join(args, " ")
			verdict := gate.Verify(destination)

			out := struct {
				Destination  string                   `json:"destination"`
				Verdict      model.DestinationVerdict `json:"verdict"`
				Alternatives []string                 `json:"alternatives,omitempty"`
			}{Destination: destination, Verdict: verdict}
			if !verdict.IsSafe || !verdict.IsAccessible {
				out.Alternatives = gate.Alternatives(verdict.Country)
			}
			return printJSON(cmd, out)
		},
	}
}

// ─── fingerprint ────────────────────────────────────────────

func newFingerprintCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print a request's fingerprint, duration and estimated wait",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			c, err := loadCatalog()
			if err != nil {
				return err
			}
			norm, err := service.NewNormalizer(c.IsComplex).Normalize(req)
			if err != nil {
				return err
			}
			return printJSON(cmd, struct {
				Fingerprint      string `json:"fingerprint"`
				CacheKey         string `json:"cacheKey"`
				Duration         int    `json:"duration"`
				EstimatedSeconds int    `json:"estimatedSeconds"`
			}{norm.Fingerprint, service.CacheKey(req), norm.Duration, norm.EstimatedProcessingSeconds})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request JSON file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// ─── prompt ─────────────────────────────────────────────────

func newPromptCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render the generation prompt for a request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			c, err := loadCatalog()
			if err != nil {
				return err
			}
			duration, err := req.Duration()
			if err != nil {
				return err
			}
			verdict := service.NewSafetyGate(c).Verify(req.Destination)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ai.BuildPrompt(req, verdict, duration, c.ReferenceCurrency()))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request JSON file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// ─── validate ───────────────────────────────────────────────

func newValidateCmd() *cobra.Command {
	var (
		requestFile string
		planFile    string
		liveRates   string
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse a saved model response and price-check it against a request",
		Long: `validate runs the same extraction, structural checks and price sanity
validation a worker applies to a model response. The plan file may be the
raw model text (fenced JSON is fine) or bare plan JSON.

Exchange rates come from the built-in table unless --rates-url is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readRequest(cmd, requestFile)
			if err != nil {
				return err
			}
			if errs := req.Validate(time.Now()); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: request %v\n", e)
				}
			}
			raw, err := readInput(cmd, planFile)
			if err != nil {
				return err
			}
			plan, err := ai.ParsePlan(string(raw))
			if err != nil {
				return fmt.Errorf("%s: %w", service.FailureReason(err), err)
			}

			c, err := loadCatalog()
			if err != nil {
				return err
			}
			var provider currency.RateProvider
			if liveRates != "" {
				provider = currency.NewClient(liveRates, timeout)
			}
			validator := service.NewPriceValidator(c, currency.NewConverter(provider, nil))
			report := validator.Validate(cmd.Context(), plan, req)
			verdict := service.NewSafetyGate(c).Verify(req.Destination)

			return printJSON(cmd, struct {
				Validation model.ValidationReport `json:"validation"`
				Tips       []string               `json:"tips"`
			}{report, service.FoldTips(verdict, report, plan.LocalTips)})
		},
	}
	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "request JSON file")
	cmd.Flags().StringVarP(&planFile, "plan", "p", "", "model response or plan JSON file")
	cmd.Flags().StringVar(&liveRates, "rates-url", "", "exchange-rate API base URL")
	cmd.Flags().DurationVar(&timeout, "rates-timeout", 5*time.Second, "exchange-rate request timeout")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

// ─── token ──────────────────────────────────────────────────

func newTokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			now := time.Now()
			token, err := middleware.NewAuthenticator(secret).Issue(args[0], jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret (JWT_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
