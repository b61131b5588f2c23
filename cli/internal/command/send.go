package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/echobox/shared/capture"
	"github.com/itchan-dev/echobox/shared/composer"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/validation"
)

func (a *app) newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an anonymous message",
	}
	cmd.AddCommand(
		a.newSendTextCommand(),
		a.newSendFileCommand(domain.TypeImage, "caption", "Optional caption"),
		a.newSendFileCommand(domain.TypeDocument, "description", "Optional description"),
		a.newSendVoiceCommand(),
	)
	return cmd
}

func (a *app) newSendTextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "text <message>...",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.composer(nil)
			if err != nil {
				return err
			}
			if err := c.SetText(strings.Join(args, " ")); err != nil {
				return err
			}
			return a.submit(cmd, c)
		},
	}
}

// newSendFileCommand covers image and document, which differ only in the
// intake rules and the name of their text flag.
func (a *app) newSendFileCommand(mode domain.MessageType, textFlag, textUsage string) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   string(mode) + " <file>",
		Short: "Send a " + string(mode),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.composer(nil)
			if err != nil {
				return err
			}
			ctx, _ := validation.ContextFor(mode)
			file, err := readUpload(args[0], ctx)
			if err != nil {
				return err
			}
			if mode == domain.TypeImage {
				err = c.StageImage(file)
			} else {
				err = c.StageDocument(file)
			}
			if err != nil {
				return err
			}
			if mode == domain.TypeImage {
				err = c.SetImageCaption(text)
			} else {
				err = c.SetDocumentDescription(text)
			}
			if err != nil {
				return err
			}
			return a.submit(cmd, c)
		},
	}
	cmd.Flags().StringVar(&text, textFlag, "", textUsage)
	return cmd
}

func readUpload(path string, ctx validation.Context) (*domain.PendingUpload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return validation.ReadUpload(f, filepath.Base(path), "", ctx)
}

func (a *app) newSendVoiceCommand() *cobra.Command {
	var input string
	var maxDuration time.Duration
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Record a voice clip and send it",
		Long: `Records from --input (a file, or "-" for stdin) until the stream ends,
Ctrl-C is pressed or --max-duration is reached, then sends the clip.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-duration") {
				if cfg, err := a.config(); err == nil {
					maxDuration = cfg.Public.MaxRecording
				}
			}
			var device capture.Device
			if input == "-" {
				device = capture.NewReaderDevice(cmd.InOrStdin())
			} else {
				device = capture.FileDevice{Path: input}
			}
			rec := capture.NewRecorder(device, capture.Config{MaxDuration: maxDuration})
			defer rec.Close()

			c, err := a.composer(rec)
			if err != nil {
				return err
			}
			if err := record(cmd.Context(), rec, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if err := c.SetMode(domain.TypeVoice); err != nil {
				return err
			}
			return a.submit(cmd, c)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", `Audio source file, "-" for stdin`)
	cmd.Flags().DurationVar(&maxDuration, "max-duration", capture.DefaultMaxDuration, "Stop recording after this long")
	return cmd
}

// record runs one recording session to completion and prints progress to w.
func record(parent context.Context, rec *capture.Recorder, w io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopped := make(chan struct{})
	var once sync.Once
	rec.OnChange(func(s capture.State) {
		if s == capture.Stopped {
			once.Do(func() { close(stopped) })
		}
	})

	if err := rec.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "Recording (max %s), press Ctrl-C to stop.\n", domain.FormatDuration(rec.MaxDuration()))

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-stopped:
			clip := rec.Clip()
			fmt.Fprintf(w, "\rRecorded %s (%s).\n", domain.FormatDuration(clip.Duration), domain.FormatFileSize(clip.Size()))
			return nil
		case <-ctx.Done():
			if _, err := rec.Stop(); err != nil && !errors.Is(err, capture.ErrNotRecording) {
				return err
			}
			<-stopped
			ctx = context.Background()
		case <-tick.C:
			fmt.Fprintf(w, "\r%s / %s", domain.FormatDuration(rec.Elapsed()), domain.FormatDuration(rec.MaxDuration()))
		}
	}
}

func (a *app) composer(rec *capture.Recorder) (*composer.Composer, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return composer.New(client, rec), nil
}

func (a *app) submit(cmd *cobra.Command, c *composer.Composer) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Submit(ctx)
	switch {
	case errors.Is(err, composer.ErrNoContent):
		return errors.New("nothing to send")
	case err != nil:
		return fmt.Errorf("failed to send message: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Message sent!")
	return nil
}
