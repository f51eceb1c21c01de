package model

// StorySource locates the inputs for one story
type StorySource struct {
	ID        string `json:"id"`
	Narrative string `json:"narrative"` // File path or http(s) URL
	Backstory string `json:"backstory"` // File path
}
