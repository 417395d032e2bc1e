package models

import "time"

// Scan is the record written to the prescriptions collection once an image
// has been uploaded and its retrieval URL resolved.
type Scan struct {
	Text      string    `firestore:"text"`
	ImageURL  string    `firestore:"imageUrl"`
	ImageKey  string    `firestore:"imageKey"`
	Timestamp time.Time `firestore:"timestamp"`
	OwnerID   string    `firestore:"ownerId"`
}

// ScanRecord is a Scan together with the ID the document store assigned to it.
type ScanRecord struct {
	ID string
	Scan
}
