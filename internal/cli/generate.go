package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Siddharth-vip/teasergen/internal/pipeline"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

func newGenerateCommand(configPath *string) *cobra.Command {
	var (
		durationSec int
		tone        string
		logo        string
		tagline     string
		music       string
		noSubtitles bool
	)

	cmd := &cobra.Command{
		Use:   "generate <file-or-youtube-url>",
		Short: "Generate a teaser from a video file or YouTube URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			parsedTone, err := types.ParseTone(tone)
			if err != nil {
				return err
			}
			prefs := types.Preferences{
				Duration:  time.Duration(durationSec) * time.Second,
				Tone:      parsedTone,
				Branding:  types.Branding{LogoPath: logo, Tagline: tagline},
				Subtitles: cfg.Teaser.Subtitles && !noSubtitles,
				MusicPath: music,
			}
			if durationSec == 0 {
				prefs.Duration = cfg.DefaultDuration()
			}

			out := cmd.OutOrStdout()
			res, err := pipeline.Execute(cmd.Context(), pipeline.Run{
				Cfg:   cfg,
				Input: args[0],
				Prefs: prefs,
				Logf: func(format string, a ...any) {
					fmt.Fprintf(out, format+"\n", a...)
				},
				Progress: func(stage string, pct float64) {
					fmt.Fprintf(out, "[%3.0f%%] %s\n", pct, stage)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nteaser:   %s\n", res.TeaserPath)
			fmt.Fprintf(out, "manifest: %s\n", res.ManifestPath)
			if res.Manifest.Caption != "" {
				fmt.Fprintf(out, "caption:  %s\n", res.Manifest.Caption)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&durationSec, "duration", "d", 0, "Teaser length in seconds (default from config)")
	cmd.Flags().StringVarP(&tone, "tone", "t", "professional", "Tone: professional, exciting, educational or inspirational")
	cmd.Flags().StringVar(&logo, "logo", "", "Logo image to overlay top-left")
	cmd.Flags().StringVar(&tagline, "tagline", "", "Tagline text to draw top-center")
	cmd.Flags().StringVar(&music, "music", "", "Background music file to mix in")
	cmd.Flags().BoolVar(&noSubtitles, "no-subtitles", false, "Skip burned-in subtitles")

	return cmd
}
