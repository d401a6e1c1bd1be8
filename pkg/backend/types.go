package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ParseState validates a state filter.
func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateQueued, StateRunning, StateCompleted, StateFailed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown job state %q", s)
	}
}

// Finished reports whether the job will not change state again.
func (s State) Finished() bool { return s == StateCompleted || s == StateFailed }

// Time is a timestamp as written by the service. Offsets are optional;
// timestamps without one are read as UTC.
type Time struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// JobSummary is the list view of a job.
type JobSummary struct {
	ID         string `json:"id"`
	Status     State  `json:"status"`
	CreatedAt  Time   `json:"created_at"`
	StartedAt  Time   `json:"started_at"`
	FinishedAt Time   `json:"finished_at"`
}

// Duration is the run time of a started job, measured up to now for jobs
// still running.
func (j JobSummary) Duration(now time.Time) time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	end := j.FinishedAt.Time
	if end.IsZero() {
		end = now
	}
	return end.Sub(j.StartedAt.Time)
}

// Job is the full record of a job.
type Job struct {
	JobSummary
	Payload        map[string]any `json:"payload,omitempty"`
	CommandPreview string         `json:"command_preview,omitempty"`
	ExitCode       *int           `json:"exit_code,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Stdout         string         `json:"stdout,omitempty"`
	Stderr         string         `json:"stderr,omitempty"`
}

// Target returns the InChI the job was submitted for, or "".
func (j Job) Target() string {
	s, _ := j.Payload["target_inchi"].(string)
	return s
}

// TargetSMILES returns the target structure as SMILES when the submitter
// recorded one, or "".
func (j Job) TargetSMILES() string {
	s, _ := j.Payload["target_smiles"].(string)
	return strings.TrimSpace(s)
}

// StatusText is the one-line status shown for a job. Failed jobs with an
// exit code report the retrosynthesis status message.
func (j Job) StatusText() string {
	if j.Status == StateFailed {
		if j.ExitCode != nil {
			return StatusMessage(*j.ExitCode)
		}
		if j.ErrorMessage != "" {
			return j.ErrorMessage
		}
	}
	return string(j.Status)
}

// Status is the response of the job status endpoint. Code is the
// retrosynthesis exit code once the job has finished.
type Status struct {
	ID     string `json:"id"`
	Status State  `json:"status"`
	Code   *int   `json:"rp2_code,omitempty"`
}

// Message returns the human readable status.
func (s Status) Message() string {
	if s.Code != nil {
		return StatusMessage(*s.Code)
	}
	return string(s.Status)
}

// Result summarises one predicted pathway of a job. Scores are absent for
// pathways that were not evaluated.
type Result struct {
	ID        string   `json:"id"`
	Steps     int      `json:"steps"`
	MeanScore *float64 `json:"mean_score"`
	StdScore  *float64 `json:"std_score"`
}

// JobRequest is the body of a job submission. Optional fields are only
// sent when set.
type JobRequest struct {
	ModelFile            string `json:"model_file"`
	TargetInChI          string `json:"target_inchi"`
	RulesFile            string `json:"rules_file,omitempty"`
	StdMode              string `json:"std_mode,omitempty"`
	MaxSteps             int    `json:"max_steps,omitempty"`
	TopX                 int    `json:"topx,omitempty"`
	AcceptPartialResults bool   `json:"accept_partial_results,omitempty"`
	Diameters            string `json:"diameters,omitempty"`
	RuleType             string `json:"rule_type,omitempty"`
	RAMLimit             int    `json:"ram_limit,omitempty"`
	SourceComp           string `json:"source_comp,omitempty"`
	TargetComp           string `json:"target_comp,omitempty"`
	UseInChIKey2         bool   `json:"use_inchikey2,omitempty"`
	FindAllParentless    bool   `json:"find_all_parentless,omitempty"`
}

// Validate checks the required fields.
func (r JobRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.ModelFile) == "":
		return fmt.Errorf("model_file is required")
	case strings.TrimSpace(r.TargetInChI) == "":
		return fmt.Errorf("target_inchi is required")
	case r.MaxSteps < 0, r.TopX < 0, r.RAMLimit < 0:
		return fmt.Errorf("numeric options must not be negative")
	}
	return nil
}

// Upload is the response of the model and rules upload endpoints. Path is
// the server-side location to reference in a [JobRequest].
type Upload struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}
