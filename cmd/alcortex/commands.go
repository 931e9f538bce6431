package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alcortex/emr/internal/config"
	"github.com/alcortex/emr/internal/domain/diagnosis"
	"github.com/alcortex/emr/internal/platform/db"
	"github.com/alcortex/emr/internal/platform/report"
	"github.com/alcortex/emr/migrations"
)

// withApp loads config, opens the app and runs fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

// ---------------------------------------------------------------------------
// migrate
// ---------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the Postgres schema (STORE_DRIVER=postgres)",
	}

	withMigrator := func(fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, migrations.FS))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrations(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func printMigrations(out io.Writer, statuses []db.MigrationStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
	}
	w.Flush()
}

// ---------------------------------------------------------------------------
// diagnose
// ---------------------------------------------------------------------------

func diagnoseCmd() *cobra.Command {
	var input, lang, user string
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run a diagnostic request from a patient intake JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, err := readPatientInput(input)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				sess, err := a.session(ctx, user)
				if err != nil {
					return err
				}
				svc, err := a.service()
				if err != nil {
					return err
				}
				outcome, err := svc.Diagnose(ctx, sess, patient, lang)
				if outcome != nil {
					if encErr := writeJSON(cmd.OutOrStdout(), outcome); encErr != nil {
						return encErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Patient intake JSON file (- for stdin)")
	cmd.Flags().StringVar(&lang, "lang", "", "Response language (en, id, ru)")
	cmd.Flags().StringVar(&user, "user", "", "Practitioner id")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// readPatientInput decodes a PatientInput over the intake form defaults.
func readPatientInput(path string) (diagnosis.PatientInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return diagnosis.PatientInput{}, err
		}
		defer f.Close()
		r = f
	}
	input := diagnosis.NewPatientInput()
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return diagnosis.PatientInput{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return input, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ---------------------------------------------------------------------------
// records
// ---------------------------------------------------------------------------

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect diagnostic records",
	}

	var user string
	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List records, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				var (
					records []diagnosis.DiagnosisRecord
					err     error
				)
				if all {
					records, err = a.records.ListAll(ctx)
				} else {
					sess, sessErr := a.session(ctx, user)
					if sessErr != nil {
						return sessErr
					}
					records, err = a.records.ListByUser(ctx, sess.UserID)
				}
				if err != nil {
					return err
				}
				printRecords(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}
	list.Flags().StringVar(&user, "user", "", "Practitioner id")
	list.Flags().BoolVar(&all, "all", false, "List every practitioner's records in storage order")
	cmd.AddCommand(list)
	return cmd
}

func printRecords(out io.Writer, records []diagnosis.DiagnosisRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tMRN\tPATIENT\tTRIAGE\tDIAGNOSIS")
	for _, r := range records {
		triage, dx := "-", "-"
		if r.Result != nil {
			triage = fmt.Sprintf("%d", r.Result.TriageLevel)
			dx = r.Result.PrimaryDiagnosis
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format(time.RFC3339), r.PatientData.MRN, r.PatientData.PatientName, triage, dx)
	}
	w.Flush()
}

// ---------------------------------------------------------------------------
// report
// ---------------------------------------------------------------------------

func reportCmd() *cobra.Command {
	var recordID, user, outDir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a record as PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				sess, err := a.session(ctx, user)
				if err != nil {
					return err
				}
				record, err := findRecord(ctx, a.records, sess.UserID, recordID)
				if err != nil {
					return err
				}
				name, data, err := report.Render(a.assembler(), a.cfg.ProductName, *record, sess.UserName)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				path := filepath.Join(outDir, name)
				if err := os.WriteFile(path, data, 0o600); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "Record id")
	cmd.Flags().StringVar(&user, "user", "", "Practitioner id (must own the record)")
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}

func findRecord(ctx context.Context, records diagnosis.RecordRepository, userID, id string) (*diagnosis.DiagnosisRecord, error) {
	list, err := records.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("record %s: %w", id, diagnosis.ErrRecordNotFound)
}

// ---------------------------------------------------------------------------
// practitioner
// ---------------------------------------------------------------------------

func practitionerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practitioner",
		Short: "Manage practitioner accounts",
	}

	var u diagnosis.User
	var role, lang string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a practitioner",
		RunE: func(cmd *cobra.Command, args []string) error {
			u.Role = diagnosis.UserRole(role)
			u.PreferredLanguage = diagnosis.Language(lang)
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.users.Add(ctx, &u); err != nil {
					var ve *diagnosis.ValidationError
					if errors.As(err, &ve) {
						return fmt.Errorf("invalid practitioner: %w", err)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&u.ID, "id", "", "Practitioner id (generated when empty)")
	add.Flags().StringVar(&u.Name, "name", "", "Display name, printed on exports")
	add.Flags().StringVar(&u.Email, "email", "", "Email (unique)")
	add.Flags().StringVar(&role, "role", string(diagnosis.RoleDoctor), "Role: Dokter, Perawat or Tenaga Analis Laboratorium")
	add.Flags().StringVar(&u.LicenseID, "license", "", "License number")
	add.Flags().StringVar(&lang, "lang", "", "Preferred language (en, id, ru)")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List practitioners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				users, err := a.users.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tROLE\tEMAIL\tLANGUAGE")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Role, u.Email, u.PreferredLanguage)
				}
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
