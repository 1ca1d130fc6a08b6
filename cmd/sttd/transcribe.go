package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"sttd/internal/capture"
	"sttd/pkg/types"
)

func newTranscribeCmd(o *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "transcribe <file.wav>",
		Short:   "Transcribe a WAV file through the local runtime",
		Example: "  sttd transcribe note.wav\n  sttd transcribe --json note.wav",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := checkWAV(payload); err != nil {
				o.log.Warn().Err(err).Str("file", args[0]).Msg("unexpected audio format; sending as is")
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			eng := buildEngine(o.cfg, o.log)
			defer eng.Close()

			res := eng.Transcribe(ctx, payload)
			if asJSON {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(res); err != nil {
					return err
				}
			} else if res.Error == "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			}
			return resultErr(res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func resultErr(res types.TranscribeResponse) error {
	if res.Error == "" {
		return nil
	}
	return fmt.Errorf("transcription failed: %s", res.Error)
}

// checkWAV reports whether payload is the 16 kHz mono 16-bit WAV the runtime
// expects. Anything else is still sent; the runtime may resample.
func checkWAV(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	dec := wav.NewDecoder(bytes.NewReader(payload))
	if !dec.IsValidFile() {
		return fmt.Errorf("not a valid WAV file")
	}
	if int(dec.SampleRate) != capture.TargetSampleRate || dec.NumChans != 1 || dec.BitDepth != 16 {
		return fmt.Errorf("got %d Hz, %d channel(s), %d-bit; want %d Hz mono 16-bit",
			dec.SampleRate, dec.NumChans, dec.BitDepth, capture.TargetSampleRate)
	}
	return nil
}
