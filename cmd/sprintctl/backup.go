package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/spf13/cobra"

	"skillsprint/internal/service"
	"skillsprint/internal/vault"
)

func (a *app) backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import a JSON backup of every table",
	}
	cmd.AddCommand(a.backupExportCmd(), a.backupImportCmd())
	return cmd
}

func (a *app) backupExportCmd() *cobra.Command {
	var output string
	var encrypt bool
	var recipients []string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			encrypt = encrypt || len(recipients) > 0
			if output == "" {
				output = fmt.Sprintf("skillsprint_backup_%s.json", time.Now().Format("20060102_150405"))
				if encrypt {
					output += ".age"
				}
			}

			var ageRecipients []age.Recipient
			if encrypt {
				var err error
				if ageRecipients, err = a.exportRecipients(recipients); err != nil {
					return err
				}
			}

			db, err := a.open()
			if err != nil {
				return err
			}
			backupService := service.NewBackupService(db)

			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			var backup *service.BackupData
			err = vault.WriteFileAtomic(output, 0600, func(w io.Writer) error {
				if !encrypt {
					backup, err = backupService.ExportToWriter(w)
					return err
				}
				ew, err := vault.Encrypt(w, ageRecipients...)
				if err != nil {
					return err
				}
				if backup, err = backupService.ExportToWriter(ew); err != nil {
					return err
				}
				return ew.Close()
			})
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			info, err := os.Stat(output)
			if err != nil {
				return err
			}
			a.out.Ok("Exported to %s", output)
			a.out.Kv("Encrypted", fmt.Sprint(encrypt))
			a.out.Kv("Size", fmt.Sprintf("%.2f KB", float64(info.Size())/1024))
			printBackupCounts(a, backup)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default skillsprint_backup_YYYYMMDD_HHMMSS.json)")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt with age; prompts for a passphrase unless --recipient is given")
	cmd.Flags().StringArrayVar(&recipients, "recipient", nil, "age public key (age1...) to encrypt to; repeatable")
	return cmd
}

func (a *app) exportRecipients(keys []string) ([]age.Recipient, error) {
	if len(keys) > 0 {
		return vault.ParseRecipients(keys...)
	}
	pass, err := a.passphrase(true)
	if err != nil {
		return nil, err
	}
	r, err := vault.PassphraseRecipient(pass)
	if err != nil {
		return nil, err
	}
	return []age.Recipient{r}, nil
}

func (a *app) backupImportCmd() *cobra.Command {
	var input, identity string
	var clearData, decrypt, yes bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a backup file into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return errors.New("--input is required")
			}
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			encrypted, err := vault.IsEncrypted(input)
			if err != nil {
				return err
			}
			if decrypt && !encrypted {
				return vault.ErrNotEncrypted
			}

			var identities []age.Identity
			if encrypted {
				if identities, err = a.importIdentities(identity); err != nil {
					return err
				}
			}

			if clearData && !yes {
				fmt.Fprint(cmd.ErrOrStderr(), "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(line) != "yes" {
					a.out.Warn("Import cancelled")
					return nil
				}
			}

			db, err := a.open()
			if err != nil {
				return err
			}
			backupService := service.NewBackupService(db)

			f, err := os.Open(input)
			if err != nil {
				return err
			}
			defer f.Close()

			var r io.Reader = f
			if encrypted {
				if r, err = vault.Decrypt(f, identities...); err != nil {
					return err
				}
			}

			if clearData {
				if err := backupService.Clear(); err != nil {
					return err
				}
				a.out.Warn("Existing data cleared")
			}

			backup, err := backupService.ImportFromReader(r)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			a.out.Ok("Imported %s", input)
			printBackupCounts(a, backup)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup file to import (required)")
	cmd.Flags().BoolVar(&clearData, "clear", false, "delete all existing data first (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the --clear confirmation")
	cmd.Flags().BoolVar(&decrypt, "decrypt", false, "require the input to be age encrypted")
	cmd.Flags().StringVar(&identity, "identity", "", "age identity file; prompts for a passphrase when omitted")
	return cmd
}

func (a *app) importIdentities(path string) ([]age.Identity, error) {
	if path != "" {
		return vault.LoadIdentities(path)
	}
	pass, err := a.passphrase(false)
	if err != nil {
		return nil, err
	}
	id, err := vault.PassphraseIdentity(pass)
	if err != nil {
		return nil, err
	}
	return []age.Identity{id}, nil
}

func printBackupCounts(a *app, b *service.BackupData) {
	if b == nil {
		return
	}
	a.out.Table([]string{"Table", "Rows"}, [][]string{
		{"users", fmt.Sprint(len(b.Users))},
		{"sprints", fmt.Sprint(len(b.Sprints))},
		{"challenges", fmt.Sprint(len(b.Challenges))},
		{"user_progress", fmt.Sprint(len(b.Progress))},
		{"day_completions", fmt.Sprint(len(b.DayCompletions))},
		{"streaks", fmt.Sprint(len(b.Streaks))},
		{"contact_messages", fmt.Sprint(len(b.ContactMessages))},
		{"problem_reports", fmt.Sprint(len(b.ProblemReports))},
	})
}
