package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job type identifiers routed to a JobRunner by the dispatcher (spec.md
// §4.8). match-job/generate-job/regenerate-job have no runner registered;
// Enqueue accepts them (so callers don't need a feature flag) but
// Dispatcher.process fails them immediately with an unsupported-type error.
const (
	JobTypeInitialScan = "initial-scan"
	JobTypeInitialSync = "initial-sync"
	JobTypeReconcile   = "reconcile-connection"
	JobTypeMatch       = "match-job"
	JobTypeGenerate    = "generate-job"
	JobTypeRegenerate  = "regenerate-job"
)

// jobTypes lists every identifier MintJobID/ParseJobID must recognize,
// longest-prefix-safe because none of these strings prefix another.
var jobTypes = []string{
	JobTypeInitialScan,
	JobTypeInitialSync,
	JobTypeReconcile,
	JobTypeMatch,
	JobTypeGenerate,
	JobTypeRegenerate,
}

const noConnectionToken = "no-connection"

// Job is the unit of work moving through a Backend, marshaled to JSON
// when the hot backend ships it over NATS.
type Job struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	ConnectionID *uuid.UUID             `json:"connectionId,omitempty"`
	UserID       string                 `json:"userId"`
	Payload      map[string]interface{} `json:"payload"`
	EnqueuedAt   time.Time              `json:"enqueuedAt"`
	Attempt      int                    `json:"attempt"`
}

// MintJobID builds the `{type}-{connectionId|"no-connection"}-{unixMillis}`
// id GetJobProgress later parses back apart to fall back to a connection's
// status when no in-process tracker entry survived a restart.
func MintJobID(jobType string, connectionID *uuid.UUID) string {
	idPart := noConnectionToken
	if connectionID != nil {
		idPart = connectionID.String()
	}
	return fmt.Sprintf("%s-%s-%d", jobType, idPart, time.Now().UnixMilli())
}

// ParseJobID reverses MintJobID. connectionID is nil both when the job
// carried no connection and when the id can't be parsed; ok distinguishes
// "recognized but connection-less" from "not a job id this dispatcher minted".
func ParseJobID(jobID string) (jobType string, connectionID *uuid.UUID, ok bool) {
	for _, t := range jobTypes {
		prefix := t + "-"
		if !strings.HasPrefix(jobID, prefix) {
			continue
		}
		rest := jobID[len(prefix):]
		if strings.HasPrefix(rest, noConnectionToken+"-") {
			return t, nil, true
		}
		const uuidLen = 36
		if len(rest) > uuidLen && rest[uuidLen] == '-' {
			if id, err := uuid.Parse(rest[:uuidLen]); err == nil {
				return t, &id, true
			}
		}
	}
	return "", nil, false
}

func describeJob(jobType string) string {
	switch jobType {
	case JobTypeInitialScan:
		return "Scanning platform catalog"
	case JobTypeInitialSync:
		return "Syncing confirmed mappings"
	case JobTypeReconcile:
		return "Reconciling connection with platform"
	case JobTypeMatch:
		return "Matching platform products"
	case JobTypeGenerate:
		return "Generating platform listings"
	case JobTypeRegenerate:
		return "Regenerating platform listings"
	default:
		return "Processing job"
	}
}
