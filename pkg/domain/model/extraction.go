package model

// ExtractionResult represents the outcome of a safe extraction
type ExtractionResult struct {
	ExtractedDirectory string   // Destination directory as given by the caller
	Entries            []string // Immediate children of the destination, unspecified order
	FileCount          int      // Number of regular files written
	TotalSize          int64    // Total bytes written
}
