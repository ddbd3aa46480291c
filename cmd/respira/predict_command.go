package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"respira/internal/api"
	"respira/internal/client"
)

func newPredictCommand(ctx *commandContext) *cobra.Command {
	var imagePath string
	var audioPath string
	var audioType string
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Submit an image and a WAV recording for prediction",
		Example: `  respira predict --image chest.png --audio breath.wav
  respira predict --image chest.png --audio breath.wav --server http://10.0.0.5:3000 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			timeout := time.Duration(cfg.Client.TimeoutSeconds) * time.Second
			form, err := client.NewForm(ctx.serverURL(), client.WithHTTPClient(&http.Client{Timeout: timeout}))
			if err != nil {
				return err
			}

			if strings.TrimSpace(imagePath) != "" {
				if _, err := form.SelectImage(imagePath, ""); err != nil {
					return err
				}
			}
			if strings.TrimSpace(audioPath) != "" {
				if _, err := form.SelectAudio(audioPath, audioType); err != nil {
					return err
				}
			}

			result, err := form.Submit(cmd.Context())
			if err != nil {
				var submitErr *client.SubmitError
				if verbose && errors.As(err, &submitErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "detail: %s\n", submitErr.Diagnostic())
				}
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, api.PredictResponse{
					Message:    result.Message,
					Prediction: &result.Prediction,
				})
			}
			printPrediction(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Image file to upload")
	cmd.Flags().StringVar(&audioPath, "audio", "", "WAV audio file to upload")
	cmd.Flags().StringVar(&audioType, "audio-type", "", "Declared audio content type (default guessed from the extension)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the response as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print failure details")
	return cmd
}

func printPrediction(cmd *cobra.Command, result client.Result) {
	out := cmd.OutOrStdout()
	audio := result.Prediction.AudioDiagnosis
	image := result.Prediction.ImageDiagnosis
	fmt.Fprintln(out, "Prediction Result:")
	fmt.Fprintf(out, "  Predicted Disease: %s (%.2f%%)\n", audio.PredictedDisease, audio.Confidence)
	fmt.Fprintf(out, "  Image Disease:     %s (%.2f%%)\n", image.PredictedDisease, image.Confidence)
	if result.RequestID != "" {
		fmt.Fprintf(out, "  Request ID:        %s\n", result.RequestID)
	}
}
