package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chriscorrea/sitecat/internal/app"
	"github.com/chriscorrea/sitecat/internal/classify"
	"github.com/chriscorrea/sitecat/internal/fetch"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url>",
	Short: "Predict the category of a website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		retrain, _ := cmd.Flags().GetBool("retrain")

		var category string
		err := withApp(cmd, "Classifying", func(ctx context.Context, a *app.App) (err error) {
			category, err = a.Classify(ctx, args[0], retrain)
			return err
		})
		if err != nil {
			return fmt.Errorf("classification failed: %w", err)
		}

		result := map[string]string{"url": fetch.FullURL(args[0]), "category": category}
		return output(cmd, result, category+"\n")
	},
}

var accuracyCmd = &cobra.Command{
	Use:   "accuracy <ratio>",
	Short: "Train on a share of every category and score the rest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ratio, err := parseRatio(args[0])
		if err != nil {
			return err
		}
		retrain, _ := cmd.Flags().GetBool("retrain")

		var eval classify.Evaluation
		err = withApp(cmd, "Evaluating", func(ctx context.Context, a *app.App) (err error) {
			eval, err = a.Accuracy(ctx, ratio, retrain)
			return err
		})
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		return output(cmd, eval, formatEvaluation(eval))
	},
}

var xvalCmd = &cobra.Command{
	Use:   "xval <folds>",
	Short: "Run stratified k-fold cross-validation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folds, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("folds must be an integer, got %q", args[0])
		}

		var result classify.CrossValidation
		err = withApp(cmd, "Cross-validating", func(ctx context.Context, a *app.App) (err error) {
			result, err = a.CrossValidate(ctx, folds)
			return err
		})
		if err != nil {
			return fmt.Errorf("cross-validation failed: %w", err)
		}

		var b strings.Builder
		for i, score := range result.Scores {
			fmt.Fprintf(&b, "fold %d: %.4f\n", i+1, score)
		}
		fmt.Fprintf(&b, "mean: %.4f\n", result.Mean)
		return output(cmd, result, b.String())
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <url> <category>",
	Short: "Teach the classifier the category of a website",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, category := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
		if url == "" || category == "" {
			return fmt.Errorf("url and category must not be empty")
		}

		err := withApp(cmd, "Updating", func(ctx context.Context, a *app.App) error {
			return a.Update(ctx, url, category)
		})
		if err != nil {
			return fmt.Errorf("update failed: %w", err)
		}

		result := map[string]string{"status": "updated", "url": url, "category": category}
		return output(cmd, result, "Updated\n")
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download every corpus page into the page cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		var result app.PullResult
		err := withApp(cmd, "Pulling pages", func(ctx context.Context, a *app.App) (err error) {
			result, err = a.Pull(ctx, force)
			return err
		})
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d pages: %d fetched, %d cached, %d failed\n",
			result.Total, result.Fetched, result.Cached, len(result.Failed))
		for _, url := range result.Failed {
			fmt.Fprintf(&b, "  failed: %s\n", url)
		}
		return output(cmd, result, b.String())
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <url>",
	Short: "Show what the classifier sees of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var report app.Report
		err := withApp(cmd, "Fetching", func(ctx context.Context, a *app.App) (err error) {
			report, err = a.Inspect(ctx, args[0])
			return err
		})
		if err != nil {
			return fmt.Errorf("inspection failed: %w", err)
		}
		return output(cmd, report, formatReport(report))
	},
}

func init() {
	classifyCmd.Flags().Bool("retrain", false, "Train a new model instead of loading the saved one")
	accuracyCmd.Flags().Bool("retrain", false, "Train a new model instead of loading the saved one")
	pullCmd.Flags().Bool("force", false, "Re-download pages that are already cached")
}

func parseRatio(arg string) (float64, error) {
	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("ratio must be a number between 0 and 1, got %q", arg)
	}
	return ratio, nil
}

func formatEvaluation(eval classify.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.4f\n", eval.Score)
	for _, m := range eval.Misclassified {
		fmt.Fprintf(&b, "  %s: %s, predicted %s\n", m.URL, m.Category, m.Predicted)
	}
	return b.String()
}

func formatReport(r app.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL:             %s\n", r.URL)
	if r.Title != "" {
		fmt.Fprintf(&b, "Title:           %s\n", r.Title)
	}
	fmt.Fprintf(&b, "Words:           %d\n", r.Stats.Words)
	fmt.Fprintf(&b, "Characters:      %d\n", r.Stats.Characters)
	if r.Stats.Tokens > 0 {
		fmt.Fprintf(&b, "Tokens:          %d\n", r.Stats.Tokens)
	}
	fmt.Fprintf(&b, "Terms:           %d\n", r.Terms)
	fmt.Fprintf(&b, "Link-text ratio: %.2f\n", r.LinkTextRatio)

	if len(r.TopTerms) > 0 {
		b.WriteString("Top terms:\n")
		for _, t := range r.TopTerms {
			fmt.Fprintf(&b, "  %-20s %d\n", t.Term, t.Count)
		}
	}
	if r.MenuText != "" {
		b.WriteString("Menu:\n")
		for _, line := range strings.Split(r.MenuText, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}
	return b.String()
}
