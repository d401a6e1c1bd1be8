package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/metaxime/pathview/pkg/backend"
	"github.com/metaxime/pathview/pkg/errors"
)

// jobsCommand lists jobs and has subcommands for single jobs.
func (c *CLI) jobsCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List retrosynthesis jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient()
			if err != nil {
				return err
			}
			var jobs []backend.JobSummary
			if status == "" {
				jobs, err = client.ListJobs(cmd.Context())
			} else {
				var st backend.State
				if st, err = backend.ParseState(status); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid --status")
				}
				jobs, err = client.ListJobsByStatus(cmd.Context(), st)
			}
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				printInfo("No jobs")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), jobsTable(jobs, time.Now()))
			printNextStep("Show a job", "pathview jobs show <id>")
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only jobs in this state: running, completed, failed")
	cmd.AddCommand(c.jobShowCommand())
	cmd.AddCommand(c.jobDeleteCommand())

	return cmd
}

func (c *CLI) jobShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job>",
		Short: "Show a job and its retrosynthesis status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient()
			if err != nil {
				return err
			}
			return showJob(cmd.Context(), client, args[0])
		},
	}
}

func showJob(ctx context.Context, client *backend.Client, id string) error {
	job, err := client.GetJob(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(StyleTitle.Render("Job " + job.ID))
	printKeyValue("Status", stateStyle(job.Status).Render(string(job.Status)))
	if t := job.Target(); t != "" {
		printKeyValue("Target", t)
	}
	now := time.Now()
	printKeyValue("Created", formatTime(job.CreatedAt, now))
	if d := job.Duration(now); d > 0 {
		printKeyValue("Duration", formatDuration(d))
	}
	if job.Status.Finished() {
		if st, err := client.JobStatus(ctx, id); err == nil {
			printKeyValue("Result", st.Message())
		}
	}
	if job.Status == backend.StateFailed {
		printWarning("%s", job.StatusText())
		return nil
	}
	if job.Status == backend.StateCompleted {
		printNextStep("List its results", "pathview results "+job.ID)
	}
	return nil
}

func (c *CLI) jobDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job>",
		Short: "Delete a job and its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient()
			if err != nil {
				return err
			}
			job, err := client.DeleteJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSuccess("Deleted job %s", job.ID)
			return nil
		},
	}
}

// resultsCommand lists the results of one job.
func (c *CLI) resultsCommand() *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:     "results <job>",
		Short:   "List the predicted pathways of a job",
		Example: `  pathview results 0f2c6a1e-... --sort mean_score:desc,steps`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := backend.ParseSortKeys(sortBy)
			if err != nil {
				return err
			}
			client, err := c.newClient()
			if err != nil {
				return err
			}
			results, err := client.ListResults(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(results) == 0 {
				printInfo("No results")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resultsTable(backend.SortResults(results, keys...), keys))
			printNextStep("Render one", fmt.Sprintf("pathview render --job %s --result <id>", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "sort keys, e.g. steps:desc,id (fields: id, steps, mean_score, std_score)")
	return cmd
}

// submitCommand posts a new job.
func (c *CLI) submitCommand() *cobra.Command {
	var req backend.JobRequest

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a retrosynthesis job",
		Long: `Submit a retrosynthesis job.

The model and rules files must already be on the backend; upload them first
with 'pathview upload' and pass the returned paths.`,
		Example: `  pathview submit --model /data/models/e_coli.xml --target 'InChI=1S/C2H4O2/c1-2(3)4/h1H3,(H,3,4)'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := req.Validate(); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid job")
			}
			client, err := c.newClient()
			if err != nil {
				return err
			}
			job, err := client.SubmitJob(cmd.Context(), req)
			if err != nil {
				return err
			}
			printSuccess("Submitted job %s (%s)", job.ID, job.Status)
			printNextStep("Follow it", "pathview jobs show "+job.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ModelFile, "model", "", "server-side path of the SBML model (required)")
	f.StringVar(&req.TargetInChI, "target", "", "InChI of the target compound (required)")
	f.StringVar(&req.RulesFile, "rules", "", "server-side path of the reaction rules")
	f.StringVar(&req.StdMode, "std-mode", "", "standardisation mode")
	f.IntVar(&req.MaxSteps, "max-steps", 0, "maximum pathway length")
	f.IntVar(&req.TopX, "topx", 0, "pathways kept per step")
	f.BoolVar(&req.AcceptPartialResults, "accept-partial", false, "keep partial results on timeout")
	f.StringVar(&req.Diameters, "diameters", "", "rule diameters, comma separated")
	f.StringVar(&req.RuleType, "rule-type", "", "rule type: all, forward, retro")
	f.IntVar(&req.RAMLimit, "ram-limit", 0, "memory limit in MB")
	f.StringVar(&req.SourceComp, "source-comp", "", "source compartment")
	f.StringVar(&req.TargetComp, "target-comp", "", "target compartment")
	f.BoolVar(&req.UseInChIKey2, "use-inchikey2", false, "match compounds on the first two InChIKey blocks")
	f.BoolVar(&req.FindAllParentless, "find-all-parentless", false, "report every parentless compound")

	return cmd
}

// uploadCommand sends a model or rules file to the backend.
func (c *CLI) uploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "upload model|rules <file>",
		Short:     "Upload an SBML model or a rules file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"model", "rules"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var rules bool
			switch args[0] {
			case "model":
			case "rules":
				rules = true
			default:
				return errors.New(errors.ErrCodeInvalidInput, "upload kind %q (must be model or rules)", args[0])
			}
			client, err := c.newClient()
			if err != nil {
				return err
			}
			up, err := client.UploadFile(cmd.Context(), rules, args[1])
			if err != nil {
				return err
			}
			printSuccess("Uploaded %s", up.Filename)
			printKeyValue("Path", up.Path)
			flag := "--model"
			if rules {
				flag = "--rules"
			}
			printNextStep("Use it", fmt.Sprintf("pathview submit %s %s ...", flag, up.Path))
			return nil
		},
	}
	return cmd
}
