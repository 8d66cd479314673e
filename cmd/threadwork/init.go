package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/formatter"
	"github.com/threadwork-cc/threadwork/internal/gate"
	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/storage"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

var (
	initName   string
	initTier   string
	initBudget int
	initForce  bool
)

// errAlreadyInitialized is returned by init when project.json exists and --force is not set.
var errAlreadyInitialized = errors.New("threadwork is already initialized in this project (use --force to overwrite)")

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the threadwork state records",
	Long: `Create .threadwork/state with the project record, an empty token ledger
and the default quality-gate configuration.

Existing quality-gate configuration is kept; the project record and the
ledger are only replaced with --force.

Examples:
  threadwork init
  threadwork init --name api --tier ninja --budget 400000
  threadwork init --dry-run`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: directory name)")
	initCmd.Flags().StringVar(&initTier, "tier", string(tier.Default), "Output tier (beginner, advanced, ninja)")
	initCmd.Flags().IntVar(&initBudget, "budget", 0, "Session token budget (default: budget.session_budget)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing project record and ledger")
}

func runInit(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	t, err := tier.Parse(initTier)
	if err != nil {
		return err
	}
	sessionBudget := initBudget
	if sessionBudget == 0 {
		sessionBudget = proj.Config.Budget.SessionBudget
	}
	if sessionBudget < 0 {
		return fmt.Errorf("%w: got %d", budget.ErrInvalidBudget, sessionBudget)
	}
	name := initName
	if name == "" {
		name = filepath.Base(proj.Root)
	}

	if proj.Initialized() && !initForce {
		return errAlreadyInitialized
	}

	w := cmd.OutOrStdout()
	if GetDryRun() {
		fmt.Fprintf(w, "[dry-run] Would create %s\n", proj.StateDir)
		fmt.Fprintf(w, "[dry-run] Would write %s (project %q, tier %s)\n", storage.ProjectFile, name, t)
		fmt.Fprintf(w, "[dry-run] Would write %s (budget %d)\n", storage.TokenLogFile, sessionBudget)
		if !proj.Store.Exists(storage.QualityConfigFile) {
			fmt.Fprintf(w, "[dry-run] Would write %s (defaults)\n", storage.QualityConfigFile)
		}
		return nil
	}

	if err := initRecords(proj, name, t, sessionBudget); err != nil {
		return err
	}

	fmt.Fprintln(w, formatter.Pass("✓")+" Threadwork initialized")
	fmt.Fprintf(w, "  Project:      %s\n", name)
	fmt.Fprintf(w, "  Skill tier:   %s\n", t)
	fmt.Fprintf(w, "  Token budget: %dK\n", sessionBudget/1000)
	fmt.Fprintf(w, "  State:        %s\n", proj.StateDir)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next: add the hook block from 'threadwork hooks show' to .claude/settings.json")
	return nil
}

// initRecords writes the project record, a fresh ledger and, when absent,
// the default quality-gate configuration.
func initRecords(proj *project.Context, name string, t tier.Tier, sessionBudget int) error {
	if err := proj.Store.Init(); err != nil {
		return err
	}
	rec := &project.Record{ProjectName: name, SkillTier: t}
	if err := proj.Store.Write(storage.ProjectFile, rec); err != nil {
		return fmt.Errorf("write project record: %w", err)
	}
	ledger := budget.NewLedger(sessionBudget)
	if err := proj.Store.Write(storage.TokenLogFile, ledger); err != nil {
		return fmt.Errorf("write token ledger: %w", err)
	}
	if !proj.Store.Exists(storage.QualityConfigFile) {
		if err := gate.SaveConfig(proj.Store, gate.DefaultConfig()); err != nil {
			return fmt.Errorf("write quality config: %w", err)
		}
	}
	return nil
}
