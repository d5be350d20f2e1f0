package pipeline

// Outcome classifies what a stage did with one candidate.
type Outcome string

const (
	OutcomeOK   Outcome = "ok"
	OutcomeSkip Outcome = "skip"
	OutcomeFail Outcome = "fail"
)

// CandidateResult records one candidate's fate in a stage.
type CandidateResult struct {
	ClipId  string
	Detail  string
	Outcome Outcome
}

// Report summarizes one stage over the whole batch.
type Report struct {
	Stage   string
	OK      int
	Skipped int
	Failed  int
	Details []CandidateResult
}

func (r *Report) add(clipId string, outcome Outcome, detail string) {
	switch outcome {
	case OutcomeOK:
		r.OK++
	case OutcomeSkip:
		r.Skipped++
	case OutcomeFail:
		r.Failed++
	}
	r.Details = append(r.Details, CandidateResult{
		ClipId:  clipId,
		Outcome: outcome,
		Detail:  detail,
	})
}
