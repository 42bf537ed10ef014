package stt

import "fmt"

// Stage is a pipeline state.
type Stage string

const (
	StageReceived         Stage = "received"
	StageNormalized       Stage = "normalized"
	StageLanguageDetected Stage = "language_detected"
	StageTranscribed      Stage = "transcribed"
	StageCleaned          Stage = "cleaned"
	StageFailed           Stage = "failed"
)

// StageError reports the state a run failed to reach. Err is one of
// *media.TranscodeError, *modelpool.LoadError or *asr.DecodeError for
// failures of the components themselves.
type StageError struct {
	Stage Stage
	Err   error
}

// Error formats the failure with the unreached state.
func (e *StageError) Error() string {
	return fmt.Sprintf("transcription failed before %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the component error.
func (e *StageError) Unwrap() error { return e.Err }
