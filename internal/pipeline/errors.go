package pipeline

import "fmt"

// Stage names the pipeline step an archive failed in.
type Stage string

const (
	StageParse    Stage = "parse"
	StageSniff    Stage = "sniff"
	StageExtract  Stage = "extract"
	StageRelocate Stage = "relocate"
)

// ArchiveError reports why a single archive could not be processed.
type ArchiveError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
