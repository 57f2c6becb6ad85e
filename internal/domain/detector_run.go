package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DetectorRun is the history record of one detector tick
type DetectorRun struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RunID        string             `json:"runId" bson:"runId"`
	Detector     string             `json:"detector" bson:"detector"`
	Trigger      string             `json:"trigger" bson:"trigger"`
	StartedAt    time.Time          `json:"startedAt" bson:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt" bson:"finishedAt"`
	Scanned      int                `json:"scanned" bson:"scanned"`
	Emitted      int                `json:"emitted" bson:"emitted"`
	Skipped      int                `json:"skipped" bson:"skipped"`
	Failed       int                `json:"failed" bson:"failed"`
	Transitioned int                `json:"transitioned" bson:"transitioned"`
	Error        string             `json:"error,omitempty" bson:"error,omitempty"`
}
