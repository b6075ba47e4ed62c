package main

import (
	"fmt"
	"io"
	"os"

	"evd-go/internal/app"
	"evd-go/internal/config"
	"evd-go/internal/evd"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an EvdApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Ingest", "Verify").
func newApp(operation string) (*app.EvdApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewEvdApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "evd",
	Short: "Evidence intake and integrity pipeline",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(actor, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Actor:    %s\n", cfg.ActorID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Actor:      %s\n", cfg.ActorID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Store Root: %s\n", cfg.Store.Root)
		fmt.Printf("Index:      %s\n", cfg.Index.Path)
		fmt.Printf("Staging:    %s\n", cfg.Intake.StagingDir)
		for _, p := range cfg.Patterns {
			fmt.Printf("Pattern:    %s (%d) %s\n", p.Name, p.Priority, p.Regex)
		}
		return nil
	},
}

// case command
var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage cases",
}

var caseAddCmd = &cobra.Command{
	Use:   "add IDENTIFIER",
	Short: "Register a case explicitly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EnsureCase")
		if err != nil {
			return err
		}
		defer a.Close()

		cs, err := a.Service().EnsureCase(args[0])
		if err != nil {
			return fmt.Errorf("registering case: %w", err)
		}

		fmt.Printf("Case %s (%s)\n", cs.Identifier, cs.ID)
		return nil
	},
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListCases")
		if err != nil {
			return err
		}
		defer a.Close()

		cases, err := a.Service().ListCases()
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			fmt.Println("No cases recorded.")
			return nil
		}

		rows := make([][]string, 0, len(cases))
		for _, cs := range cases {
			rows = append(rows, []string{
				cs.Identifier,
				cs.ID,
				cs.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		fmt.Println(renderTable(
			[]string{"Case", "ID", "Created"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

// ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [PATH]",
	Short: "Run files through the intake pipeline",
	Long: `Ingest a file, or every file in a directory, through the intake
pipeline. Without a PATH argument the configured staging directory is
processed as a batch. Source files are never deleted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hint := evd.Hint{Provenance: evd.ProvenanceInbox}
		hint.CaseIdentifier, _ = cmd.Flags().GetString("case")
		hint.DocType, _ = cmd.Flags().GetString("type")
		hint.Title, _ = cmd.Flags().GetString("title")
		hint.Date, _ = cmd.Flags().GetString("date")
		hint.EntryID, _ = cmd.Flags().GetString("entry-id")
		hint.Stamp, _ = cmd.Flags().GetString("stamp")
		hint.Notes, _ = cmd.Flags().GetString("note")
		hint.Actor, _ = cmd.Flags().GetString("actor")
		hint.Source, _ = cmd.Flags().GetString("source")
		if manual, _ := cmd.Flags().GetBool("manual"); manual {
			hint.Provenance = evd.ProvenanceManual
		}

		a, err := newApp("Ingest")
		if err != nil {
			return err
		}
		defer a.Close()

		var results []*evd.IntakeResult
		if len(args) > 0 {
			results, err = a.Ingest(cmd.Context(), args[0], hint)
		} else {
			results, err = a.IngestStaging(cmd.Context(), hint)
		}
		if err != nil {
			return fmt.Errorf("intake failed: %w", err)
		}

		printResults(results)
		return nil
	},
}

func printResults(results []*evd.IntakeResult) {
	var accepted, duplicates, quarantined, rejected int
	for _, r := range results {
		switch {
		case r.Outcome == evd.OutcomeAccepted && r.Duplicate:
			duplicates++
			fmt.Printf("DUP  %s -> %s (evidence %s)\n", r.SourcePath, r.CanonicalPath, r.EvidenceID)
		case r.Outcome == evd.OutcomeAccepted:
			accepted++
			fmt.Printf("OK   %s -> %s\n", r.SourcePath, r.CanonicalPath)
		case r.Outcome == evd.OutcomeQuarantined:
			quarantined++
			fmt.Printf("QUAR %s: %s\n", r.SourcePath, r.Reason)
		default:
			rejected++
			fmt.Printf("REJ  %s: %s\n", r.SourcePath, r.Reason)
		}
		if r.Unassigned {
			fmt.Printf("     no docket pattern matched, filed under %s\n", r.CaseIdent)
		}
	}
	fmt.Printf("\n%d accepted, %d duplicate, %d quarantined, %d rejected\n",
		accepted, duplicates, quarantined, rejected)
}

// docket command
var docketCmd = &cobra.Command{
	Use:   "docket CASE",
	Short: "List a case's docket entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListDocket")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Service().ListDocket(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Docket is empty.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.EntryID,
				e.Date.Format("2006-01-02"),
				string(e.DocType),
				e.Title,
				e.CanonicalPath,
				shortDigest(e.Digest),
			})
		}
		fmt.Println(renderTable(
			[]string{"Entry", "Date", "Type", "Title", "Path", "Digest"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [CASE]",
	Short: "Re-hash stored evidence against the manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		caseIdent := ""
		if len(args) > 0 {
			caseIdent = args[0]
		}

		mismatches, err := a.Verify(cmd.Context(), caseIdent, actor)
		if err != nil {
			return fmt.Errorf("audit failed: %w", err)
		}
		if len(mismatches) == 0 {
			fmt.Println("All evidence verified clean.")
			return nil
		}

		for _, m := range mismatches {
			if m.Missing {
				fmt.Printf("MISSING  %s (expected %s)\n", m.CanonicalPath, shortDigest(m.Expected))
				continue
			}
			fmt.Printf("MISMATCH %s expected %s got %s\n",
				m.CanonicalPath, shortDigest(m.Expected), shortDigest(m.Actual))
		}
		return fmt.Errorf("%d integrity finding(s): human review required", len(mismatches))
	},
}

// custody command
var custodyCmd = &cobra.Command{
	Use:   "custody EVIDENCE_ID",
	Short: "Print an evidence item's chain of custody",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CustodyReport")
		if err != nil {
			return err
		}
		defer a.Close()

		item, events, err := a.Service().CustodyReport(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Evidence %s\n", item.ID)
		fmt.Printf("  Path:   %s\n", item.CanonicalPath)
		fmt.Printf("  Digest: %s\n", item.Digest)
		fmt.Printf("  Size:   %d\n", item.Size)
		if item.SupersededBy != "" {
			fmt.Printf("  Superseded by: %s\n", item.SupersededBy)
		}
		fmt.Println()
		printEvents(events)
		return nil
	},
}

// ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger CASE",
	Short: "Print every custody event recorded against a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CaseLedger")
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.Service().CaseLedger(args[0])
		if err != nil {
			return err
		}
		printEvents(events)
		return nil
	},
}

func printEvents(events []*evd.CustodyEvent) {
	if len(events) == 0 {
		fmt.Println("No custody events.")
		return
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			e.At.Format("2006-01-02 15:04:05"),
			string(e.Type),
			e.Actor,
			shortDigest(e.HashAfter),
			e.Note,
		})
	}
	fmt.Println(renderTable(
		[]string{"#", "At", "Event", "Actor", "Hash", "Note"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

// hold command
var holdCmd = &cobra.Command{
	Use:   "hold",
	Short: "Manage litigation holds",
}

var holdApplyCmd = &cobra.Command{
	Use:   "apply CASE",
	Short: "Place a litigation hold on a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("ApplyHold")
		if err != nil {
			return err
		}
		defer a.Close()

		hold, err := a.Service().ApplyHold(args[0], reason, actor)
		if err != nil {
			return err
		}

		fmt.Printf("Hold %s applied to %s: %s\n", hold.ID, args[0], hold.Reason)
		return nil
	},
}

var holdReleaseCmd = &cobra.Command{
	Use:   "release CASE",
	Short: "Release the active hold on a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("ReleaseHold")
		if err != nil {
			return err
		}
		defer a.Close()

		hold, err := a.Service().ReleaseHold(args[0], note, actor)
		if err != nil {
			return err
		}

		fmt.Printf("Hold %s released (applied %s)\n",
			hold.ID, hold.AppliedAt.Format("2006-01-02"))
		return nil
	},
}

// negative command
var negativeCmd = &cobra.Command{
	Use:   "negative",
	Short: "Manage negative-evidence claims",
}

var negativeRecordCmd = &cobra.Command{
	Use:   "record CASE",
	Short: "Record a 'no responsive records' claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claimant, _ := cmd.Flags().GetString("claimant")
		scope, _ := cmd.Flags().GetString("scope")
		response, _ := cmd.Flags().GetString("response")
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("RecordNegativeEvidence")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Service().RecordNegativeEvidence(args[0], claimant, scope, response, actor)
		if err != nil {
			return err
		}

		fmt.Printf("Negative-evidence claim %s recorded (digest %s)\n",
			rec.ID, shortDigest(rec.ResponseDigest))
		return nil
	},
}

var negativeListCmd = &cobra.Command{
	Use:   "list CASE",
	Short: "List a case's negative-evidence claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListNegativeEvidence")
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.Service().ListNegativeEvidence(args[0])
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No negative-evidence claims recorded.")
			return nil
		}

		for _, r := range recs {
			fmt.Printf("%s  %s  %-20s  %s\n",
				r.RecordedAt.Format("2006-01-02"), shortDigest(r.ResponseDigest),
				r.Claimant, r.RequestScope)
		}
		return nil
	},
}

// quarantine command
var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "List quarantined files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListQuarantine")
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.Service().ListQuarantine()
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("Quarantine is empty.")
			return nil
		}

		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, []string{
				r.At.Format("2006-01-02 15:04:05"),
				r.OriginalName,
				r.Reason,
				r.QuarantinePath,
			})
		}
		fmt.Println(renderTable(
			[]string{"At", "File", "Reason", "Held At"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

// supersede command
var supersedeCmd = &cobra.Command{
	Use:   "supersede CASE ENTRY_ID PATH",
	Short: "Replace an entry's evidence with corrected bytes",
	Long: `Replace the evidence behind a docket entry. The predecessor item and
its file are kept; the entry is re-pointed at the new item and the
supersession is logged with both digests.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("Supersede")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Supersede(cmd.Context(), args[0], args[1], args[2], note, actor)
		if err != nil {
			return err
		}

		fmt.Printf("Entry %s now points at %s (%s)\n",
			res.EntryID, res.EvidenceID, res.CanonicalPath)
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show EVIDENCE_ID",
	Short: "Stream evidence bytes to stdout",
	Long: `Stream stored evidence bytes to stdout. Reading evidence is a
custody-relevant act: an access event is appended before any byte leaves
the store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("OpenEvidence")
		if err != nil {
			return err
		}
		defer a.Close()

		rc, _, err := a.Service().OpenEvidence(args[0], actor)
		if err != nil {
			return err
		}
		defer rc.Close()

		if _, err := io.Copy(os.Stdout, rc); err != nil {
			return fmt.Errorf("streaming evidence: %w", err)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export EVIDENCE_ID DEST",
	Short: "Copy evidence bytes out of the store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("ExportEvidence")
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := a.ExportEvidence(args[0], args[1], actor)
		if err != nil {
			return err
		}

		fmt.Printf("Exported %s to %s\n", item.CanonicalPath, args[1])
		fmt.Printf("SHA-256: %s\n", item.Digest)
		return nil
	},
}

// sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reclaim store files that never reached a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp("SweepOrphans")
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.Service().SweepOrphans(cmd.Context(), actor)
		if err != nil {
			return err
		}

		if len(removed) == 0 {
			fmt.Println("No orphaned files.")
			return nil
		}
		for _, p := range removed {
			fmt.Printf("removed %s\n", p)
		}
		fmt.Printf("Reclaimed %d file(s)\n", len(removed))
		return nil
	},
}

// shortDigest truncates a digest for display; full digests live in the index.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("actor", "system", "Default actor recorded on custody events")

	// case subcommands
	caseCmd.AddCommand(caseAddCmd)
	caseCmd.AddCommand(caseListCmd)

	// hold subcommands
	holdCmd.AddCommand(holdApplyCmd)
	holdCmd.AddCommand(holdReleaseCmd)
	holdApplyCmd.Flags().String("reason", "", "Why the hold is being placed (required)")
	holdApplyCmd.Flags().String("actor", "", "Acting identity")
	holdReleaseCmd.Flags().String("note", "", "Release note")
	holdReleaseCmd.Flags().String("actor", "", "Acting identity")

	// negative subcommands
	negativeCmd.AddCommand(negativeRecordCmd)
	negativeCmd.AddCommand(negativeListCmd)
	negativeRecordCmd.Flags().String("claimant", "", "Who made the claim (required)")
	negativeRecordCmd.Flags().String("scope", "", "What was requested")
	negativeRecordCmd.Flags().String("response", "", "The response text (required)")
	negativeRecordCmd.Flags().String("actor", "", "Acting identity")

	// ingest flags
	ingestCmd.Flags().String("case", "", "Docket identifier hint")
	ingestCmd.Flags().String("type", "", "Document type hint")
	ingestCmd.Flags().String("title", "", "Title hint")
	ingestCmd.Flags().String("date", "", "Calendar date hint (YYYY-MM-DD)")
	ingestCmd.Flags().String("entry-id", "", "Docket entry ID hint")
	ingestCmd.Flags().String("stamp", "", "Extracted stamp text")
	ingestCmd.Flags().String("note", "", "Free-form note")
	ingestCmd.Flags().String("actor", "", "Acting identity")
	ingestCmd.Flags().String("source", "", "Where the bytes came from")
	ingestCmd.Flags().Bool("manual", false, "Mark provenance as manual instead of inbox")

	verifyCmd.Flags().String("actor", "", "Acting identity")
	showCmd.Flags().String("actor", "", "Acting identity")
	supersedeCmd.Flags().String("note", "", "Why the evidence is being replaced")
	supersedeCmd.Flags().String("actor", "", "Acting identity")
	exportCmd.Flags().String("actor", "", "Acting identity")
	sweepCmd.Flags().String("actor", "", "Acting identity")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(docketCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(custodyCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(holdCmd)
	rootCmd.AddCommand(negativeCmd)
	rootCmd.AddCommand(quarantineCmd)
	rootCmd.AddCommand(supersedeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sweepCmd)
}
