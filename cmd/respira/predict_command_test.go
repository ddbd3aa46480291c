package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"respira/internal/api"
	"respira/internal/client"
	"respira/internal/testsupport"
)

func TestPredictCommandPrintsDiagnoses(t *testing.T) {
	testsupport.RequireShell(t)
	env := setupCLITestEnv(t, testsupport.WithModelScript(testsupport.ScriptNoisyPrediction))
	server := env.startDaemon(t)
	imagePath, audioPath := testsupport.WriteUploadPair(t, t.TempDir())

	out, _, err := runCLI(t, []string{"predict", "--image", imagePath, "--audio", audioPath}, server, env.configPath)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	requireContains(t, out, "Prediction Result:")
	requireContains(t, out, "Predicted Disease: Asthma (91.50%)")
	requireContains(t, out, "Image Disease:     Normal (88.25%)")
	requireContains(t, out, "Request ID:")
}

func TestPredictCommandJSON(t *testing.T) {
	testsupport.RequireShell(t)
	env := setupCLITestEnv(t, testsupport.WithModelScript(testsupport.ScriptPrintPrediction))
	server := env.startDaemon(t)
	imagePath, audioPath := testsupport.WriteUploadPair(t, t.TempDir())

	out, _, err := runCLI(t, []string{"predict", "--image", imagePath, "--audio", audioPath, "--json"}, server, env.configPath)
	if err != nil {
		t.Fatalf("predict --json: %v", err)
	}
	var resp api.PredictResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if resp.Prediction == nil || resp.Prediction.AudioDiagnosis.PredictedDisease != "Asthma" {
		t.Fatalf("unexpected prediction %+v", resp.Prediction)
	}
}

func TestPredictCommandModelFailure(t *testing.T) {
	testsupport.RequireShell(t)
	env := setupCLITestEnv(t, testsupport.WithModelScript(testsupport.ScriptFail))
	server := env.startDaemon(t)
	imagePath, audioPath := testsupport.WriteUploadPair(t, t.TempDir())

	_, stderr, err := runCLI(t, []string{"predict", "--image", imagePath, "--audio", audioPath, "-v"}, server, env.configPath)
	if err == nil {
		t.Fatal("expected predict to fail")
	}
	if err.Error() != client.GenericErrorMessage {
		t.Fatalf("error = %q, want generic message", err.Error())
	}
	requireContains(t, stderr, "model exploded")
}

func TestPredictCommandRejectsNonWAVAudio(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	imagePath, _ := testsupport.WriteUploadPair(t, dir)
	mp3 := filepath.Join(dir, "breath.mp3")
	testsupport.WriteFile(t, mp3, []byte("ID3"))

	// No daemon is running: the selection must fail before any request.
	_, _, err := runCLI(t, []string{"predict", "--image", imagePath, "--audio", mp3}, "http://127.0.0.1:1", env.configPath)
	if err == nil {
		t.Fatal("expected audio selection to fail")
	}
	requireContains(t, err.Error(), "WAV")
}

func TestPredictCommandRequiresBothFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	imagePath, _ := testsupport.WriteUploadPair(t, t.TempDir())

	_, _, err := runCLI(t, []string{"predict", "--image", imagePath}, "http://127.0.0.1:1", env.configPath)
	if err == nil {
		t.Fatal("expected missing audio to fail")
	}
	requireContains(t, err.Error(), "both PNG and WAV")
}
