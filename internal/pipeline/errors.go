package pipeline

import "fmt"

// Stage names the step at which a story failed
type Stage string

const (
	StageProvider Stage = "provider"
	StageLoad     Stage = "load"
	StageIndex    Stage = "index"
	StageExtract  Stage = "extract"
	StageClaims   Stage = "claims"
	StageGather   Stage = "gather"
	StageDecide   Stage = "decide"
)

// StoryProcessingError reports a story that produced no result
type StoryProcessingError struct {
	StoryID string
	Stage   Stage
	Err     error
}

func (e *StoryProcessingError) Error() string {
	return fmt.Sprintf("story %s: %s: %v", e.StoryID, e.Stage, e.Err)
}

func (e *StoryProcessingError) Unwrap() error { return e.Err }

func storyErr(storyID string, stage Stage, err error) error {
	return &StoryProcessingError{StoryID: storyID, Stage: stage, Err: err}
}
