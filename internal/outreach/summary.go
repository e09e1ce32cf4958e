package outreach

import "github.com/foxzi/outreach/internal/roster"

// Outcome is the final state of one recipient
type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeUnknownKind Outcome = "unknown_kind"
)

// Result records what happened to one recipient
type Result struct {
	Line    int
	Company string
	Name    string
	Email   string
	Outcome Outcome
}

// Malformed is a skipped row
type Malformed struct {
	Line    int
	Company string
	Reason  string
}

// Summary describes a run
type Summary struct {
	Rows          int // Well-formed rows
	Sent          int
	Duplicates    int
	UnknownKind   int
	RowsMalformed int

	Results   []Result
	Malformed []Malformed
}

func (s *Summary) add(row roster.Row, rcpt roster.Recipient, outcome Outcome) {
	s.Results = append(s.Results, Result{
		Line:    row.Line,
		Company: row.Company,
		Name:    rcpt.Name,
		Email:   rcpt.Email,
		Outcome: outcome,
	})

	switch outcome {
	case OutcomeSent:
		s.Sent++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeUnknownKind:
		s.UnknownKind++
	}
}

func (s *Summary) addMalformed(row roster.Row, err error) {
	s.RowsMalformed++
	s.Malformed = append(s.Malformed, Malformed{
		Line:    row.Line,
		Company: row.Company,
		Reason:  err.Error(),
	})
}

// SentAddresses returns the addresses sent in this run, in order
func (s *Summary) SentAddresses() []string {
	var out []string
	for _, r := range s.Results {
		if r.Outcome == OutcomeSent {
			out = append(out, r.Email)
		}
	}
	return out
}
