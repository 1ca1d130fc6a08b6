package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sttd/internal/capture"
	"sttd/pkg/types"
)

func newListenCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Push-to-talk from the terminal: Enter starts, Enter again transcribes",
		Long: "Records from the default input device between two presses of Enter and prints the transcript.\n" +
			"Type q and Enter to quit. Requires a build with -tags portaudio.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			eng := buildEngine(o.cfg, o.log)
			defer eng.Close()

			unsubscribe := eng.OnStatus(func(st types.SttStatus) {
				o.log.Info().Str("state", st.State).Msg(st.Message)
			})
			defer unsubscribe()
			go eng.EnsureReady(ctx)

			rec := capture.NewRecorder(capture.DefaultInput(), o.log)
			return runListen(ctx, eng, rec, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type transcriber interface {
	Transcribe(ctx context.Context, payload []byte) types.TranscribeResponse
}

// runListen drives rec from lines read on in. Each empty line toggles
// recording; stopping a recording transcribes it and prints the result.
func runListen(ctx context.Context, t transcriber, rec *capture.Recorder, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, "Press Enter to talk, Enter again to transcribe, q to quit.")
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			_, _ = rec.Stop()
			return nil
		case line, ok = <-lines:
		}
		if !ok || line == "q" {
			_, _ = rec.Stop()
			return nil
		}

		if rec.State() == capture.StateIdle {
			if err := rec.Start(); err != nil {
				return err
			}
			fmt.Fprintln(out, "● recording...")
			continue
		}

		payload, err := rec.Stop()
		if err != nil {
			fmt.Fprintf(out, "capture error: %v\n", err)
		}
		res := t.Transcribe(ctx, payload)
		if res.Error != "" {
			fmt.Fprintf(out, "error: %s\n", res.Error)
			continue
		}
		fmt.Fprintln(out, res.Text)
	}
}
