package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mystuffai/mystuff/internal/app"
	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/files"
	"github.com/mystuffai/mystuff/internal/log"
)

// NewFilesCmd creates the files command group.
func NewFilesCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage uploaded documents",
	}

	cmd.AddCommand(
		newFilesListCmd(cfg, logger),
		newFilesGetCmd(cfg, logger),
		newFilesUploadCmd(cfg, logger),
		newFilesDeleteCmd(cfg, logger),
	)
	return cmd
}

func newFilesListCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(a); err != nil {
				return err
			}

			records, err := a.Files.Fetch(cmd.Context(), true)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No documents uploaded yet. Add one with 'mystuff files upload <path>'.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZE\tPROCESSED\tUPLOADED")
			for _, rec := range records {
				processed := "no"
				if rec.IsProcessed {
					processed = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					rec.ID, rec.OriginalName, formatSize(rec.FileSize),
					processed, rec.UploadDate.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newFilesGetCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document's details and download link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(a); err != nil {
				return err
			}

			rec, err := a.Files.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			processed := "no"
			if rec.IsProcessed {
				processed = "yes"
			}
			fmt.Printf("Name:      %s\n", rec.OriginalName)
			fmt.Printf("Type:      %s\n", rec.FileType)
			fmt.Printf("Size:      %s\n", formatSize(rec.FileSize))
			fmt.Printf("Processed: %s\n", processed)
			fmt.Printf("Uploaded:  %s\n", rec.UploadDate.Local().Format("2006-01-02 15:04"))
			if rec.DownloadURL != "" {
				// The link is pre-signed and expires; run get again for a fresh one
				fmt.Printf("Download:  %s\n", rec.DownloadURL)
			}
			return nil
		},
	}
}

func newFilesUploadCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a document for chatting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(a); err != nil {
				return err
			}

			path, err := files.ValidateUpload(args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			rec, err := a.Files.Upload(cmd.Context(), filepath.Base(path), f)
			if err != nil {
				return err
			}

			fmt.Printf("Uploaded %s (id %s). Processing starts shortly.\n", rec.OriginalName, rec.ID)
			return nil
		},
	}
}

func newFilesDeleteCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an uploaded document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(a); err != nil {
				return err
			}
			if err := a.Files.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		},
	}
}

// formatSize renders a byte count in a compact human form.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMG"[exp])
}
