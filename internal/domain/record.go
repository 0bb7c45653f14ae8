package domain

import (
	"encoding/json"
	"time"
)

// Operation names the state-changing call a Record describes.
type Operation string

const (
	OpTaskCreated      Operation = "task_created"
	OpValidatorAdded   Operation = "validator_added"
	OpWorkerAdded      Operation = "worker_added"
	OpWorkedHoursAdded Operation = "worked_hours_added"
	OpTaskFunded       Operation = "task_funded"
	OpTaskStarted      Operation = "task_started"
	OpTaskReopened     Operation = "task_reopened"
	OpTaskCompleted    Operation = "task_completed"
	OpTaskValidated    Operation = "task_validated"
	OpPayout           Operation = "payout"
)

// GenesisHash is the PrevHash of the first record in the chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Record is the structured output of one state-changing operation.
// Records form a hash chain: Hash = sha256(PrevHash || canonical JSON).
type Record struct {
	ID             string          `json:"id" yaml:"id"`
	Seq            int64           `json:"seq" yaml:"seq"`
	Operation      Operation       `json:"operation" yaml:"operation"`
	TaskID         int64           `json:"task_id" yaml:"task_id"`
	Actor          Address         `json:"actor" yaml:"actor"`
	Payload        json.RawMessage `json:"payload" yaml:"-"`
	ResultingState TaskState       `json:"resulting_state" yaml:"resulting_state"`
	Timestamp      time.Time       `json:"timestamp" yaml:"timestamp"`
	PrevHash       string          `json:"prev_hash" yaml:"prev_hash"`
	Hash           string          `json:"hash" yaml:"hash"`
	Signature      string          `json:"signature,omitempty" yaml:"signature,omitempty"`
}
