package digest

import "strings"

// Error taxonomy for the ingestion pipeline. Scope decides how far an error
// propagates: channel-scoped errors skip the channel, video-scoped errors
// fail the video and leave it for the next run, storage errors abort the run.

// FetchError: a channel feed was unreachable or unparseable. Channel-scoped.
type FetchError struct {
	ChannelID string
	Err       error
}

func (e *FetchError) Error() string { return "feed " + e.ChannelID + ": " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// TranscriptUnavailable: every acquisition method failed or produced
// unusable text. Video-scoped; the video stays absent from the ledger so a
// later run retries it.
type TranscriptUnavailable struct {
	VideoID string
	Err     error
}

func (e *TranscriptUnavailable) Error() string {
	return "transcript " + e.VideoID + ": " + e.Err.Error()
}
func (e *TranscriptUnavailable) Unwrap() error { return e.Err }

// SummarizationError: the model call failed or the response violated the
// section schema. Video-scoped. A partial or malformed document is never
// accepted; Missing lists the absent section keys when the schema was the
// problem.
type SummarizationError struct {
	Missing []string
	Err     error
}

func (e *SummarizationError) Error() string {
	if len(e.Missing) > 0 {
		return "summarize: missing sections: " + strings.Join(e.Missing, ", ")
	}
	return "summarize: " + e.Err.Error()
}
func (e *SummarizationError) Unwrap() error { return e.Err }

// StorageError: ledger or document store unreachable or corrupt. Run-fatal:
// continuing would risk committing the ledger without its document.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }
