package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dubber/internal/media/ffprobe"
	"dubber/internal/pipeline"
	"dubber/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		languageFlag     string
		toneFlag         string
		outputFlag       string
		lipSyncFlag      bool
		keepMusicFlag    bool
		convertModelFlag string
		convertIndexFlag string
	)

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Dub a video into the target language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.buildLogger(cfg)
			if err != nil {
				return err
			}

			release, err := lockWorkspace(cfg)
			if err != nil {
				return err
			}
			defer release()

			store, err := ctx.openStore(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			progress := func(step, total int, description string) {
				fmt.Fprintf(out, "[%d/%d] %s\n", step, total, description)
			}

			controller := ctx.buildController(cfg, logger, store, runOverrides{
				convertModel: convertModelFlag,
				convertIndex: convertIndexFlag,
			}, progress)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := preflightInput(runCtx, services.RunCommand, cfg.Tools.FFprobe, args[0]); err != nil {
				return err
			}

			result, err := controller.Run(runCtx, pipeline.Request{
				Input:      args[0],
				Output:     outputFlag,
				TargetLang: languageFlag,
				Tone:       toneFlag,
				KeepMusic:  keepMusicFlag,
				LipSync:    lipSyncFlag,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Dubbed video written to %s\n", result.OutputPath)
			fmt.Fprintf(out, "Run %s: %d segments, %d speakers\n", result.RunID, result.Segments, result.Speakers)
			return nil
		},
	}

	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Target language (BCP 47 tag, e.g. hi, es, fr)")
	cmd.Flags().StringVar(&toneFlag, "tone", "", "Override the classified emotion for every segment")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output video path (defaults to the output directory)")
	cmd.Flags().BoolVar(&lipSyncFlag, "lip-sync", false, "Re-time lip motion to the dubbed audio")
	cmd.Flags().BoolVar(&keepMusicFlag, "keep-music", true, "Mix the separated background music back under the dub")
	cmd.Flags().StringVar(&convertModelFlag, "convert-model", "", "Voice conversion model path for this run")
	cmd.Flags().StringVar(&convertIndexFlag, "convert-index", "", "Voice conversion index path for this run")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

// preflightInput rejects containers the pipeline cannot dub before any
// workspace state is created for the run.
func preflightInput(ctx context.Context, run services.CommandRunner, binary, path string) error {
	info, err := ffprobe.InspectWith(ctx, run, binary, path)
	if err != nil {
		return err
	}
	if info.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "run", "preflight", fmt.Sprintf("%s has no video stream", path), nil)
	}
	if info.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "run", "preflight", fmt.Sprintf("%s has no audio stream, nothing to dub", path), nil)
	}
	return nil
}
