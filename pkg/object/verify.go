package object

import "fmt"

// VerifySummary reports the outcome of Store.Verify.
type VerifySummary struct {
	Objects int
	Corrupt []Hash // stored bytes no longer hash to the file name
}

// Verify rehashes every stored object. Corruption is reported in the
// summary; only failures to list or read the store are returned as errors.
func (s *Store) Verify() (*VerifySummary, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	report := &VerifySummary{}
	for _, h := range ids {
		stored, err := s.ReadStored(h)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", h, err)
		}
		if actual := s.opts.Hash.Sum(stored); actual != h {
			report.Corrupt = append(report.Corrupt, h)
		}
		report.Objects++
	}
	return report, nil
}
