package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/balajivenky06/dandi/internal/clipboard"
	"github.com/balajivenky06/dandi/internal/config"
	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/secret"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/balajivenky06/dandi/internal/storage/backend"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	store     storage.Storage
	keys      *service.Controller
	validator *service.Validator
	clip      clipboard.Clipboard
	owned     bool
}

// newRootCmd builds the command tree. A nil store is opened from the
// environment and a nil clipboard means the system one.
func newRootCmd(store storage.Storage, clip clipboard.Clipboard) *cobra.Command {
	a := &app{store: store, clip: clip}
	var driver, dsn string

	cmd := &cobra.Command{
		Use:          "keyctl",
		Short:        "Manage dandi API keys",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.store == nil {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if driver != "" {
					cfg.Database.Driver = driver
				}
				if dsn != "" {
					cfg.Database.DSN = dsn
				}
				a.store, err = backend.Open(ctx, cfg.Database)
				if err != nil {
					return err
				}
				a.owned = true
			}
			if a.clip == nil {
				a.clip = clipboard.NewSystem(cmd.OutOrStdout())
			}
			a.keys = service.NewController(a.store, service.WithClipboard(a.clip))
			a.validator = service.NewValidator(a.store)
			return a.keys.Load(ctx)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a.keys.Close()
			if a.owned {
				return a.store.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&driver, "db-driver", "", "Store driver (overrides DB_DRIVER)")
	cmd.PersistentFlags().StringVar(&dsn, "db-dsn", "", "Store DSN (overrides DB_DSN)")

	cmd.AddCommand(
		a.listCmd(),
		a.createCmd(),
		a.renameCmd(),
		a.deleteCmd(),
		a.copyCmd(),
		a.showCmd(),
		a.validateCmd(),
	)
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all API keys, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reveal, _ := cmd.Flags().GetBool("reveal")
			keys := a.keys.Snapshot().Keys

			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No API keys found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tUSAGE\tKEY")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", k.ID, k.Name, k.Type, k.Usage, secret.Mask(k.Secret, reveal))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("reveal", false, "Show full secrets")
	return cmd
}

func (a *app) createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyType, _ := cmd.Flags().GetString("type")

			rec, err := a.keys.Create(cmd.Context(), args[0], keyType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, service.MsgCreated)
			fmt.Fprintf(out, "ID:   %s\nType: %s\nKey:  %s\n", rec.ID, rec.Type, rec.Secret)
			return nil
		},
	}
	cmd.Flags().StringP("type", "t", string(domain.KeyTypeDev), "Key type (dev or prod)")
	return cmd
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.keys.StartEdit(args[0]); err != nil {
				return fmt.Errorf("key %s: %w", args[0], err)
			}
			rec, err := a.keys.SaveEdit(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", service.MsgUpdated, rec.Name)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			id := args[0]
			out := cmd.OutOrStdout()

			st := a.keys.Snapshot()
			rec := st.Key(id)
			if rec == nil {
				return fmt.Errorf("key %s: %w", id, domain.ErrNotFound)
			}

			if err := a.keys.RequestDelete(id); err != nil {
				return err
			}
			if !yes {
				fmt.Fprintf(out, "Delete API key %s (ID: %s)? (yes/no): ", rec.Name, id)
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.ToLower(strings.TrimSpace(response)) != "yes" {
					a.keys.CancelDelete()
					fmt.Fprintln(out, "Deletion cancelled.")
					return nil
				}
			}

			if err := a.keys.ConfirmDelete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, service.MsgDeleted)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func (a *app) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy an API key to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.keys.CopySecret(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.MsgCopied)
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show API key details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reveal, _ := cmd.Flags().GetBool("reveal")
			st := a.keys.Snapshot()
			rec := st.Key(args[0])
			if rec == nil {
				return fmt.Errorf("key %s: %w", args[0], domain.ErrNotFound)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID:\t%s\n", rec.ID)
			fmt.Fprintf(w, "Name:\t%s\n", rec.Name)
			fmt.Fprintf(w, "Type:\t%s\n", rec.Type)
			fmt.Fprintf(w, "Usage:\t%d\n", rec.Usage)
			fmt.Fprintf(w, "Key:\t%s\n", secret.Mask(rec.Secret, reveal))
			fmt.Fprintf(w, "Created:\t%s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "Updated:\t%s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
			return w.Flush()
		},
	}
	cmd.Flags().Bool("reveal", false, "Show the full secret")
	return cmd
}

// errInvalidKey makes validate exit non-zero after printing the reason.
var errInvalidKey = errors.New("invalid API key")

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <key>",
		Short: "Check whether a key is valid without counting a use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.validator.Validate(cmd.Context(), args[0])
			if !res.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "Invalid: %s\n", res.Message)
				return errInvalidKey
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%s)\n", res.Record.Name, res.Record.Type)
			return nil
		},
	}
}
