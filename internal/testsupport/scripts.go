package testsupport

import (
	"os"
	"runtime"
	"testing"
)

// PredictionJSON is a well-formed model result.
const PredictionJSON = `{"audio_diagnosis": {"predicted_disease": "Asthma", "confidence": 91.5}, "image_diagnosis": {"predicted_disease": "Normal", "confidence": 88.25}}`

// Model stub bodies for WithModelScript. $1 is the audio path and $2 the
// image path.
const (
	ScriptPrintPrediction = "echo '" + PredictionJSON + "'\n"

	// ScriptNoisyPrediction mimics a framework printing progress around the result.
	ScriptNoisyPrediction = "echo '1/1 [==============================] - 0s 120ms/step'\n" +
		"echo 'loading weights {cached}'\n" +
		"echo '" + PredictionJSON + "'\n" +
		"echo 'done'\n"

	ScriptFail = "echo 'Traceback: model exploded' >&2\nexit 1\n"

	ScriptNoJSON = "echo 'no result here'\nexit 0\n"

	ScriptSleep = "sleep 30\n"

	// ScriptLongLine prints a single line well past the per-line limit before the result.
	ScriptLongLine = "head -c 1100000 /dev/zero | tr '\\0' '.'\necho\necho '" + PredictionJSON + "'\n"

	ScriptWriteResultFile = "echo 'progress line'\necho '" + PredictionJSON + "' > \"$RESPIRA_RESULT_PATH\"\n"

	// ScriptEchoArgs emits a prediction whose labels are the argument basenames.
	ScriptEchoArgs = `a=$(basename "$1"); i=$(basename "$2")
printf '{"audio_diagnosis":{"predicted_disease":"%s","confidence":1},"image_diagnosis":{"predicted_disease":"%s","confidence":2}}\n' "$a" "$i"
`
)

// RequireShell skips tests that run model stubs when /bin/sh is unavailable.
func RequireShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}
