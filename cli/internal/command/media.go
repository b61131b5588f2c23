package command

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/echobox/shared/domain"
)

func (a *app) newMediaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Download message attachments (admin)",
	}
	cmd.AddCommand(a.newMediaGetCommand())
	return cmd
}

func (a *app) newMediaGetCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download the file attached to a message",
		Long:  `Saves the file under its own name unless -o is given; "-o -" writes to stdout.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, err := a.loadDashboard(cmd.Context())
			if err != nil {
				return err
			}
			m, ok := dash.Message(args[0])
			if !ok {
				return fmt.Errorf("message %s not found", args[0])
			}
			if !m.HasMedia() {
				return fmt.Errorf("message %s has no attachment", m.Id)
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			media, err := client.GetMedia(cmd.Context(), m.Id)
			if err != nil {
				return fmt.Errorf("failed to download media: %w", err)
			}
			defer media.Body.Close()

			if output == "-" {
				_, err = io.Copy(cmd.OutOrStdout(), media.Body)
				return err
			}
			path := output
			if path == "" {
				path = m.FileName
			}
			n, err := writeFile(path, media.Body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s).\n", path, domain.FormatFileSize(n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output file, "-" for stdout`)
	return cmd
}

// writeFile removes a partially written file on failure.
func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating output file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return n, nil
}
