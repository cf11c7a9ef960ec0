package core

import (
	"time"
)

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// Record is a dataset row. Spam is nil for unlabelled test records.
type Record struct {
	Subject string
	Message string
	Spam    *bool
}

// LabeledRecord creates a training record
func LabeledRecord(subject, message string, spam bool) Record {
	return Record{Subject: subject, Message: message, Spam: &spam}
}

// UnlabeledRecord creates a test record
func UnlabeledRecord(subject, message string) Record {
	return Record{Subject: subject, Message: message}
}

// IsLabeled reports whether the record carries a spam/ham label
func (r Record) IsLabeled() bool {
	return r.Spam != nil
}

// IsSpam returns the label, false for unlabelled records
func (r Record) IsSpam() bool {
	return r.Spam != nil && *r.Spam
}

// Text joins subject and message the way they are tokenized
func (r Record) Text() string {
	return r.Subject + " " + r.Message
}

// Neighbor is one of the k training examples that took part in a vote
type Neighbor struct {
	TrainingIndex int
	Distance      float64
	Spam          bool
}

// SpamAnalysisResult represents the result of spam analysis
type SpamAnalysisResult struct {
	IsSpam          bool
	Score           float64
	Confidence      float64
	Explanation     string
	AnalyzedAt      time.Time
	ModelUsed       string
	ProcessingID    string
	Neighbors       []Neighbor
	MatchedFeatures []string
}

type CacheEntry struct {
	Fingerprint string
	IsSpam      bool
	Score       float64
	LastSeen    time.Time
	ExpiresAt   time.Time
}
