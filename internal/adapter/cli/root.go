// Package cli wires the reviewbuddy commands to the review use cases.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l1v0n1/ReviewBuddy/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// PRRequest describes a pull request review invocation.
type PRRequest struct {
	Owner  string
	Repo   string
	Number int
	DryRun bool
}

// LocalRequest describes a review of local branches.
type LocalRequest struct {
	Repository string
	BaseRef    string
	TargetRef  string
}

// PRReviewer runs the review pipeline against a GitHub pull request.
type PRReviewer interface {
	ReviewPR(ctx context.Context, req PRRequest) (review.Result, error)
}

// LocalReviewer runs the review pipeline against local git refs.
type LocalReviewer interface {
	ReviewLocal(ctx context.Context, req LocalRequest) (review.Result, error)
	CurrentBranch() (string, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	PRReviewer    PRReviewer
	LocalReviewer LocalReviewer
	Args          Arguments
	DefaultBase   string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "reviewbuddy",
		Short: "AI-assisted code review for pull requests",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Run a code review",
	}
	reviewCmd.AddCommand(prCommand(deps.PRReviewer))
	reviewCmd.AddCommand(localCommand(deps.LocalReviewer, deps.DefaultBase))
	root.AddCommand(reviewCmd)

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func prCommand(reviewer PRReviewer) *cobra.Command {
	var owner string
	var repo string
	var number int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Review a GitHub pull request and post the result as a comment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" || repo == "" {
				return fmt.Errorf("--owner and --repo are required")
			}
			if number <= 0 {
				return fmt.Errorf("--number must be a positive integer")
			}

			res, err := reviewer.ReviewPR(cmd.Context(), PRRequest{
				Owner:  owner,
				Repo:   repo,
				Number: number,
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}

			if dryRun {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Body)
				return nil
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "review posted to %s/%s#%d\n", owner, repo, number)
			for _, notice := range res.Review.Degraded {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", notice)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "GitHub repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository name")
	cmd.Flags().IntVar(&number, "number", 0, "Pull request number")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the review comment instead of posting it")

	return cmd
}

func localCommand(reviewer LocalReviewer, defaultBase string) *cobra.Command {
	var baseRef string
	var targetRef string
	var repository string
	var detectTarget bool

	if defaultBase == "" {
		defaultBase = "main"
	}

	cmd := &cobra.Command{
		Use:   "local [target]",
		Short: "Review local changes between two git refs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				targetRef = args[0]
			}
			if targetRef == "" && detectTarget {
				resolved, err := reviewer.CurrentBranch()
				if err != nil {
					return fmt.Errorf("detect target branch: %w", err)
				}
				targetRef = resolved
			}
			if targetRef == "" {
				return fmt.Errorf("target branch not specified; pass as an argument, use --target, or disable --detect-target")
			}

			res, err := reviewer.ReviewLocal(cmd.Context(), LocalRequest{
				Repository: repository,
				BaseRef:    baseRef,
				TargetRef:  targetRef,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Body)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", defaultBase, "Base reference to diff against")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target branch to review (overrides positional)")
	cmd.Flags().StringVar(&repository, "repository", "", "Optional repository name override")
	cmd.Flags().BoolVar(&detectTarget, "detect-target", true, "Automatically detect the checked out branch when no target is provided")

	return cmd
}
